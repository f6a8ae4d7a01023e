package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/luvnest/internal/types"
)

// Generation kinds and the generator function each one calls.
const (
	KindLoveStory  = "love-story"
	KindLoveLetter = "love-letter"
)

var generatorFunctions = map[string]string{
	KindLoveStory:  "generate-love-story",
	KindLoveLetter: "generate-love-letter",
}

// GenerateRequest asks the text generator for prose.
type GenerateRequest struct {
	Kind   string                 `json:"kind"`
	Params map[string]interface{} `json:"params"`
}

type generatorReply struct {
	Story  string `json:"story"`
	Letter string `json:"letter"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Generator is a thin client for the external text generation endpoint.
type Generator struct {
	Endpoint string
	Key      string
	Timeout  time.Duration
}

func param(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

// Validate checks the request has what the kind needs.
func (r GenerateRequest) Validate() error {
	switch r.Kind {
	case KindLoveStory:
		if param(r.Params, "promptDetails") == "" {
			return types.ValidationErrorf("share some details about your love story first")
		}
	case KindLoveLetter:
		if param(r.Params, "memories") == "" && param(r.Params, "feelings") == "" {
			return types.ValidationErrorf("share some memories or feelings first")
		}
	default:
		return types.ValidationErrorf("unknown generation kind %q", r.Kind)
	}
	return nil
}

// Generate posts the request and returns the generated text.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	if g.Endpoint == "" {
		return "", fmt.Errorf("%w: text generation is not configured", types.ErrUnavailable)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	timeout := g.Timeout
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		timeout = time.Until(deadline)
	}

	agent := fiber.Post(strings.TrimSuffix(g.Endpoint, "/") + "/" + generatorFunctions[req.Kind])
	agent.Timeout(timeout)
	if g.Key != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+g.Key)
	}
	agent.JSON(req.Params)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("%w: %v", types.ErrUnavailable, errs[0])
	}

	var reply generatorReply
	if err := json.Unmarshal(body, &reply); err != nil {
		return "", fmt.Errorf("%w: unreadable generator response (status %d)", types.ErrUnavailable, code)
	}
	if reply.Error != "" {
		return "", fmt.Errorf("%w: %s", types.ErrUnavailable, reply.Error)
	}
	if code >= fiber.StatusBadRequest {
		return "", fmt.Errorf("%w: generator returned status %d", types.ErrUnavailable, code)
	}

	for _, text := range []string{reply.Story, reply.Letter, reply.Text} {
		if text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: generator returned no text", types.ErrUnavailable)
}
