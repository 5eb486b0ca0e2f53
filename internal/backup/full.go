package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/kedaiku/pos/internal/db"
)

// FullEngine produces and restores whole-database snapshots. With a sqlite
// DSN the database file is copied; with a postgres DSN pg_dump/psql run as
// external processes under the caller's context deadline.
type FullEngine struct {
	Store *Store
	DSN   string
}

func NewFullEngine(store *Store, dsn string) *FullEngine {
	return &FullEngine{Store: store, DSN: dsn}
}

// CreateFull writes a backup_full_{ts} snapshot and returns its name.
func (e *FullEngine) CreateFull(ctx context.Context) (string, error) {
	return e.snapshot(ctx, "backup_full_")
}

func (e *FullEngine) snapshot(ctx context.Context, prefix string) (string, error) {
	ts := timestamp(time.Now())
	if db.IsPostgresDSN(e.DSN) {
		name := prefix + ts + ".sql"
		path, err := e.Store.SafeJoin(name)
		if err != nil {
			return "", err
		}
		if err := runPgTool(ctx, "pg_dump", e.DSN, "--file", path); err != nil {
			return "", err
		}
		return name, nil
	}
	name := prefix + ts + ".sqlite"
	path, err := e.Store.SafeJoin(name)
	if err != nil {
		return "", err
	}
	if err := copyFile(sqliteFilePath(e.DSN), path); err != nil {
		return "", err
	}
	return name, nil
}

// RestoreFull overwrites the live database from a stored snapshot. An
// automatic safety backup (auto-before-restore_*) is always taken first; a
// failed restore means recovering manually from that file.
func (e *FullEngine) RestoreFull(ctx context.Context, name string) error {
	src, err := e.Store.Path(name)
	if err != nil {
		return err
	}
	auto, err := e.snapshot(ctx, "auto-before-restore_")
	if err != nil {
		return fmt.Errorf("pre-restore safety backup failed: %w", err)
	}
	log.Infof("safety backup %s written, restoring from %s", auto, name)

	if db.IsPostgresDSN(e.DSN) {
		return runPgTool(ctx, "psql", e.DSN, "--file", src)
	}
	return copyFile(src, sqliteFilePath(e.DSN))
}

// runPgTool invokes a postgres client utility, surfacing stderr on non-zero
// exit.
func runPgTool(ctx context.Context, tool, dsn string, args ...string) error {
	full := append([]string{"--dbname", dsn}, args...)
	cmd := exec.CommandContext(ctx, tool, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", tool, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// sqliteFilePath strips sqlite DSN decorations (file: prefix, query params)
// down to the on-disk path.
func sqliteFilePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	return p
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
