package database

import (
	"testing"

	"github.com/localnerve/luvnest/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorSelection(t *testing.T) {
	cases := map[string]string{
		"mysql":     "mysql",
		"mariadb":   "mysql",
		"postgres":  "postgres",
		"sqlite":    "sqlite",
		"sqlserver": "sqlserver",
		"mssql":     "sqlserver",
	}
	for dbType, name := range cases {
		d, err := Dialector(&config.Config{
			DBType:        dbType,
			DBHost:        "db",
			DBPort:        "5432",
			DBAppDatabase: "luvnest",
			DBAppUser:     "app",
			DBAppPassword: "pw",
		})
		require.NoError(t, err, dbType)
		assert.Equal(t, name, d.Name(), dbType)
	}

	_, err := Dialector(&config.Config{DBType: "oracle"})
	assert.EqualError(t, err, "unsupported database type: oracle")
}
