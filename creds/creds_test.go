package creds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sveliz/nordctl/common"
)

// chdir mirrors testing.T.Chdir (Go 1.24+) for the Go 1.21 toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(common.EnvUsername, "alice")
	t.Setenv(common.EnvPassword, "s3cret")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Username != "alice" || c.Password != "s3cret" {
		t.Errorf("Load() = %+v", c)
	}
}

func TestLoadMissing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(common.EnvUsername, "")
	t.Setenv(common.EnvPassword, "")

	_, err := Load()
	if !errors.Is(err, common.ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
	if Configured() {
		t.Error("Configured() = true without credentials")
	}
}

func TestLoadPartialIsMissing(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(common.EnvUsername, "alice")
	t.Setenv(common.EnvPassword, "")

	if _, err := Load(); !errors.Is(err, common.ErrNoCredentials) {
		t.Errorf("err = %v, want ErrNoCredentials", err)
	}
}

func TestLoadMergesDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(common.EnvUsername, "")
	t.Setenv(common.EnvPassword, "")
	os.Unsetenv(common.EnvUsername)
	os.Unsetenv(common.EnvPassword)

	env := common.EnvUsername + "=bob\n" + common.EnvPassword + "=hunter2\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Username != "bob" || c.Password != "hunter2" {
		t.Errorf("Load() = %+v", c)
	}
}

func TestLoadEnvironmentWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv(common.EnvUsername, "alice")
	t.Setenv(common.EnvPassword, "s3cret")

	env := common.EnvUsername + "=bob\n" + common.EnvPassword + "=hunter2\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0600); err != nil {
		t.Fatal(err)
	}

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Username != "alice" || c.Password != "s3cret" {
		t.Errorf("Load() = %+v, want environment values", c)
	}
}
