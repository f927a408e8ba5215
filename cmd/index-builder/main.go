package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claimsight-ai/platform/pkg/common/config"
	"github.com/claimsight-ai/platform/pkg/common/database"
	"github.com/claimsight-ai/platform/pkg/common/httpclient"
	"github.com/claimsight-ai/platform/pkg/common/kafka"
	"github.com/claimsight-ai/platform/pkg/common/logger"
	"github.com/claimsight-ai/platform/pkg/common/models"
	"github.com/claimsight-ai/platform/pkg/embedding"
	"github.com/claimsight-ai/platform/pkg/policy"
	"gopkg.in/yaml.v3"
)

// manifest maps corpus files to document names and policy categories. When no
// manifest is present every .txt and .md file in the corpus directory is
// ingested under its base name with no category restriction.
type manifest struct {
	Documents []manifestEntry `yaml:"documents"`
}

type manifestEntry struct {
	File       string   `yaml:"file"`
	Name       string   `yaml:"name"`
	Categories []string `yaml:"categories"`
}

func main() {
	dir := flag.String("dir", "corpus", "directory containing policy documents")
	manifestPath := flag.String("manifest", "", "optional manifest.yaml describing names and categories")
	flag.Parse()

	logger.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	repo := policy.NewRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate policy tables")
	}

	embedder, err := embedding.NewHTTPProvider(embedding.Config{
		BaseURL:   cfg.EmbeddingBaseURL,
		APIKey:    cfg.EmbeddingAPIKey,
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		Client:    httpclient.New(cfg.EmbeddingTimeout),
	})
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to configure embedding provider")
	}

	producer := kafka.NewProducer(cfg.CorpusTopic)
	defer producer.Close()

	index := policy.NewIndex(cfg.EmbeddingDimension)
	chunker := policy.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	svc := policy.NewService(repo, index, embedder, chunker, producer)

	entries, err := corpusEntries(*dir, *manifestPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to read corpus directory")
	}
	if len(entries) == 0 {
		logger.Log.WithField("dir", *dir).Fatal("no policy documents found")
	}

	ctx := context.Background()
	start := time.Now()
	var chunks int
	for _, entry := range entries {
		text, err := os.ReadFile(filepath.Join(*dir, entry.File))
		if err != nil {
			logger.Log.WithError(err).WithField("file", entry.File).Fatal("failed to read policy document")
		}

		resp, err := svc.IngestDocument(ctx, models.IngestPolicyRequest{
			Name:       entry.Name,
			Categories: entry.Categories,
			Text:       string(text),
		})
		if err != nil {
			logger.Log.WithError(err).WithField("file", entry.File).Fatal("failed to ingest policy document")
		}

		chunks += resp.Chunks
		logger.Log.WithFields(map[string]interface{}{
			"document_id": resp.DocumentID,
			"name":        entry.Name,
			"chunks":      resp.Chunks,
		}).Info("policy document indexed")
	}

	if err := index.Persist(cfg.IndexPath); err != nil {
		logger.Log.WithError(err).Fatal("failed to persist policy index")
	}

	logger.Log.WithFields(map[string]interface{}{
		"documents": len(entries),
		"chunks":    chunks,
		"path":      cfg.IndexPath,
		"elapsed":   time.Since(start).String(),
	}).Info("policy index built")
}

func corpusEntries(dir, manifestPath string) ([]manifestEntry, error) {
	if manifestPath != "" {
		raw, err := os.ReadFile(manifestPath)
		if err != nil {
			return nil, err
		}
		var m manifest
		if err := yaml.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		for i := range m.Documents {
			if m.Documents[i].Name == "" {
				m.Documents[i].Name = baseName(m.Documents[i].File)
			}
		}
		return m.Documents, nil
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var entries []manifestEntry
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		switch filepath.Ext(f.Name()) {
		case ".txt", ".md":
			entries = append(entries, manifestEntry{File: f.Name(), Name: baseName(f.Name())})
		}
	}
	return entries, nil
}

func baseName(file string) string {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	return strings.ReplaceAll(name, "-", " ")
}
