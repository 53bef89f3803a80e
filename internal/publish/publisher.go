package publish

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/rohankatakam/classharvest/internal/artifact"
	"github.com/rohankatakam/classharvest/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Publisher uploads the class files copied for one commit directory
type Publisher struct {
	store       Store
	outputDir   string
	concurrency int
	logger      *logrus.Logger
}

// NewPublisher creates a publisher; outputDir is the per-commit folder name used in object keys
func NewPublisher(store Store, outputDir string, concurrency int, logger *logrus.Logger) *Publisher {
	if concurrency <= 0 {
		concurrency = 4
	}
	if outputDir == "" {
		outputDir = "compiled"
	}
	return &Publisher{
		store:       store,
		outputDir:   outputDir,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Key returns the object key of a copied class file:
// <stage>/<project>/<commit>/compiled/<class path>
func (p *Publisher) Key(dir models.CommitDir, classPath string) string {
	return path.Join(string(dir.Stage), dir.Project, dir.Commit, p.outputDir, classPath)
}

// Publish uploads files with bounded concurrency and returns how many succeeded.
// The first failure cancels the remaining uploads.
func (p *Publisher) Publish(ctx context.Context, dir models.CommitDir, files []artifact.Copied) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	uploaded := make([]bool, len(files))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := p.upload(ctx, p.Key(dir, f.ClassPath), f.TargetPath); err != nil {
				return fmt.Errorf("upload %s: %w", f.ClassPath, err)
			}
			uploaded[i] = true
			return nil
		})
	}

	err := g.Wait()

	count := 0
	for _, ok := range uploaded {
		if ok {
			count++
		}
	}

	p.logger.WithFields(logrus.Fields{
		"commit":   dir.Commit,
		"uploaded": count,
	}).Debug("Published artifacts")
	return count, err
}

func (p *Publisher) upload(ctx context.Context, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	return p.store.Put(ctx, key, f, info.Size())
}
