//go:build integration

package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

var testPool *pgxpool.Pool

// findProjectRoot walks up from the working directory to the go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root containing go.mod")
}

func TestMain(m *testing.M) {
	ctx := context.Background()
	const (
		dbName     = "tickets-test"
		dbUser     = "user"
		dbPassword = "password"
		dbPort     = "5432"
	)

	cmd := exec.Command("docker", "run", "-d", "--rm",
		"--network", "host",
		"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
		"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
		"postgres:16",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
	}
	containerID := strings.TrimSpace(out.String())[:12]

	dsn := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
	var err error
	const maxRetries = 15
	for i := 0; i < maxRetries; i++ {
		testPool, err = NewPgxPool(ctx, dsn, 20)
		if err == nil {
			break
		}
		log.Printf("waiting for database (attempt %d/%d)", i+1, maxRetries)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = exec.Command("docker", "stop", containerID).Run()
		log.Fatalf("unable to connect to test database: %v", err)
	}

	root, err := findProjectRoot()
	if err != nil {
		log.Fatalf("find project root: %v", err)
	}
	schema, err := os.ReadFile(filepath.Join(root, "deploy", "postgres", "init.sql"))
	if err != nil {
		log.Fatalf("read init.sql: %v", err)
	}
	if _, err := testPool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("apply schema: %v", err)
	}

	code := m.Run()

	testPool.Close()
	if err := exec.Command("docker", "stop", containerID).Run(); err != nil {
		log.Printf("could not stop postgres container %s: %v", containerID, err)
	}
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	if _, err := testPool.Exec(context.Background(), `TRUNCATE credentials`); err != nil {
		t.Fatalf("truncate credentials: %v", err)
	}
}
