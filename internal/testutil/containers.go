package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Containers is a MariaDB instance and, optionally, an Authorizer running
// against it. Settings come from the environment, the same variables the
// service reads.
type Containers struct {
	Network    *testcontainers.DockerNetwork
	DB         testcontainers.Container
	Authorizer testcontainers.Container

	// DBHost and DBPort reach the database from the host.
	DBHost string
	DBPort string
	// AuthzURL reaches the Authorizer from the host.
	AuthzURL string
}

const dbAlias = "database"

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ContainersEnabled reports whether DB_IMAGE names an image to run.
func ContainersEnabled() bool {
	return os.Getenv("DB_IMAGE") != ""
}

// Terminate stops everything that was started. t may be nil outside tests.
func (c *Containers) Terminate(t testing.TB) {
	ctx := context.Background()
	if c.Authorizer != nil {
		if err := c.Authorizer.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate Authorizer: %v", err)
		}
	}
	if c.DB != nil {
		if err := c.DB.Terminate(ctx); err != nil {
			logMessage(t, "Failed to terminate MariaDB: %v", err)
		}
	}
	if c.Network != nil {
		if err := c.Network.Remove(ctx); err != nil {
			logMessage(t, "Failed to remove network: %v", err)
		}
	}
}

// StartContainers starts MariaDB, creates the service and Authorizer
// databases, and starts the Authorizer when withAuthorizer is set. On error
// everything already started is terminated.
func StartContainers(t testing.TB, withAuthorizer bool) (*Containers, error) {
	ctx := context.Background()
	c := &Containers{}

	nw, err := network.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create network: %w", err)
	}
	c.Network = nw

	dbPort, err := nat.NewPort("tcp", getEnv("DB_PORT", "3306"))
	if err != nil {
		c.Terminate(t)
		return nil, fmt.Errorf("failed to create DB port: %w", err)
	}
	db, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        os.Getenv("DB_IMAGE"),
			ExposedPorts: []string{string(dbPort)},
			Env: map[string]string{
				"MYSQL_ROOT_PASSWORD": getEnv("DB_ROOT_PASSWORD", "root"),
				"MYSQL_DATABASE":      getEnv("DB_DATABASE", "luvnest"),
				"MYSQL_USER":          getEnv("DB_APP_USER", "luvnest"),
				"MYSQL_PASSWORD":      getEnv("DB_APP_PASSWORD", "luvnest"),
			},
			WaitingFor: wait.ForListeningPort(dbPort).WithStartupTimeout(60 * time.Second),
			Networks:   []string{nw.Name},
			NetworkAliases: map[string][]string{
				nw.Name: {dbAlias},
			},
		},
		Started: true,
	})
	if err != nil {
		c.Terminate(t)
		return nil, fmt.Errorf("failed to start MariaDB: %w", err)
	}
	c.DB = db

	host, err := db.Host(ctx)
	if err != nil {
		c.Terminate(t)
		return nil, err
	}
	mapped, err := db.MappedPort(ctx, dbPort)
	if err != nil {
		c.Terminate(t)
		return nil, err
	}
	c.DBHost, c.DBPort = host, mapped.Port()

	if err := c.initDatabases(); err != nil {
		c.Terminate(t)
		return nil, err
	}
	logMessage(t, "DB_HOST=%s DB_PORT=%s", c.DBHost, c.DBPort)

	if withAuthorizer {
		if err := c.startAuthorizer(ctx, nw.Name, dbPort); err != nil {
			c.Terminate(t)
			return nil, err
		}
		logMessage(t, "AUTHZ_URL=%s", c.AuthzURL)
	}
	return c, nil
}

func (c *Containers) initDatabases() error {
	db, err := sql.Open("mysql", fmt.Sprintf("root:%s@tcp(%s:%s)/", getEnv("DB_ROOT_PASSWORD", "root"), c.DBHost, c.DBPort))
	if err != nil {
		return fmt.Errorf("failed to connect to MariaDB for setup: %w", err)
	}
	defer db.Close()

	// the port opens before the server accepts logins
	for i := 0; i < 30; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(time.Second)
	}
	if err != nil {
		return fmt.Errorf("MariaDB not ready after 30 seconds: %w", err)
	}

	authzDB := getEnv("AUTHZ_DATABASE", "authorizer")
	if _, err := db.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", authzDB)); err != nil {
		return fmt.Errorf("failed to create %s: %w", authzDB, err)
	}
	return nil
}

func (c *Containers) startAuthorizer(ctx context.Context, networkName string, dbPort nat.Port) error {
	authzPort, err := nat.NewPort("tcp", getEnv("AUTHZ_PORT", "8080"))
	if err != nil {
		return fmt.Errorf("failed to create Authorizer port: %w", err)
	}
	dsn := fmt.Sprintf("root:%s@tcp(%s:%s)/%s",
		getEnv("DB_ROOT_PASSWORD", "root"), dbAlias, dbPort.Port(), getEnv("AUTHZ_DATABASE", "authorizer"))

	authz, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        getEnv("AUTHZ_IMAGE", "lakhansamani/authorizer:latest"),
			ExposedPorts: []string{string(authzPort)},
			Env: map[string]string{
				"ENV":           "production",
				"CLIENT_ID":     os.Getenv("AUTHZ_CLIENT_ID"),
				"PORT":          authzPort.Port(),
				"DATABASE_TYPE": "mariadb",
				"DATABASE_NAME": getEnv("AUTHZ_DATABASE", "authorizer"),
				"DATABASE_URL":  dsn,
				"ADMIN_SECRET":  os.Getenv("AUTHZ_ADMIN_SECRET"),
				"ROLES":         "admin,user",
				"DEFAULT_ROLES": "user",
			},
			WaitingFor: wait.ForLog("Authorizer running at PORT:").WithStartupTimeout(30 * time.Second),
			Networks:   []string{networkName},
		},
		Started: true,
	})
	if err != nil {
		return fmt.Errorf("failed to start Authorizer: %w", err)
	}
	c.Authorizer = authz

	host, err := authz.Host(ctx)
	if err != nil {
		return err
	}
	mapped, err := authz.MappedPort(ctx, authzPort)
	if err != nil {
		return err
	}
	c.AuthzURL = fmt.Sprintf("http://%s:%s", host, mapped.Port())
	return nil
}

func logMessage(t testing.TB, format string, args ...any) {
	if t != nil {
		t.Logf(format, args...)
	} else {
		fmt.Printf(format+"\n", args...)
	}
}
