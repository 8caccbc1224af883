package job

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// BuildSweepJob removes compile scratch directories left behind by crashed
// runs. Normal compiles clean up after themselves; this is the backstop.
type BuildSweepJob struct {
	tmpRoot string
	maxAge  time.Duration
}

func NewBuildSweepJob(maxAge time.Duration) *BuildSweepJob {
	if maxAge <= 0 {
		maxAge = 6 * time.Hour
	}
	return &BuildSweepJob{tmpRoot: os.TempDir(), maxAge: maxAge}
}

func (j *BuildSweepJob) Name() string {
	return "build_sweep"
}

func (j *BuildSweepJob) Run(ctx context.Context) error {
	entries, err := os.ReadDir(j.tmpRoot)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "boardtex-build-") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.tmpRoot, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		logutil.GetLogger(ctx).Info("swept stale build dirs", zap.Int("removed", removed))
	}
	return nil
}
