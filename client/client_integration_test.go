// client_integration_test.go
//go:build integration
// +build integration

package client

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"
)

func integrationAddr() string {
	if addr := os.Getenv("BLOGCMS_ADDR_URL"); addr != "" {
		return addr
	}

	return "http://localhost:3333"
}

func TestPing(t *testing.T) {
	c, err := New(integrationAddr())
	if err != nil {
		t.Fatal(err)
	}

	if s, err := c.Ping(context.Background()); err != nil || s != "ok" {
		t.Fatalf("ping: %q %v", s, err)
	}
}

func TestSignUpAndCreate(t *testing.T) {
	c, err := New(integrationAddr())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	email := fmt.Sprintf("it-%d@example.com", time.Now().UnixNano())
	if _, err := c.SignUp(ctx, "Integration", email, "secret123"); err != nil {
		t.Fatal(err)
	}

	a, err := c.CreateArticle(ctx, ArticleInput{Title: "Integration", Content: "Written by the integration test"})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
}
