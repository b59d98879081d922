package synclock

import (
	"path/filepath"
	"testing"

	"github.com/nickcecere/convsync/pkg/syncerr"
)

func TestAcquireThenContendedAcquireFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "sync.lock")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	defer l1.Release()

	_, err = Acquire(path)
	if err == nil {
		t.Fatal("expected second acquire to fail")
	}
	if !syncerr.Is(err, syncerr.KindLockBusy) {
		t.Errorf("expected KindLockBusy, got %v", err)
	}
}

func TestReleaseThenReacquireSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.lock")

	l1, err := Acquire(path)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := l1.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	l2, err := Acquire(path)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	defer l2.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(filepath.Join(dir, "sync.lock"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}
