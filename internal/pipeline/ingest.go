package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"kbrag/internal/chunker"
	"kbrag/internal/extract"
	"kbrag/internal/rag"
)

const maxConcurrentIngest = 4

// Ingest processes every supported file under the data directory. Documents
// are independent: a file that fails to extract or chunk is skipped and
// reported, never aborting the batch. Re-ingestion overwrites a document's
// chunks in place and trims stale leftovers afterwards, so a concurrent
// query never sees the document with an incomplete chunk set.
func (p *Pipeline) Ingest(ctx context.Context) (*rag.IngestSummary, error) {
	start := time.Now()

	files, err := listSupportedFiles(p.cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("scan data dir %s: %w", p.cfg.DataDir, err)
	}

	type fileResult struct {
		file   string
		chunks int
		err    error
	}
	results := make(chan fileResult, len(files))
	sem := make(chan struct{}, maxConcurrentIngest)

	for _, f := range files {
		sem <- struct{}{}
		go func(f string) {
			defer func() { <-sem }()
			n, err := p.ingestFile(ctx, f)
			results <- fileResult{file: filepath.Base(f), chunks: n, err: err}
		}(f)
	}

	summary := &rag.IngestSummary{}
	for range files {
		r := <-results
		summary.FilesProcessed++
		if r.err != nil {
			p.log.Error("ingest failed", "file", r.file, "error", r.err)
			summary.Failures = append(summary.Failures, rag.IngestFailure{
				File:   r.file,
				Reason: r.err.Error(),
			})
			continue
		}
		summary.ChunksCreated += r.chunks
		summary.DocumentsUpserted++
	}

	sort.Slice(summary.Failures, func(i, j int) bool {
		return summary.Failures[i].File < summary.Failures[j].File
	})

	summary.ElapsedSeconds = time.Since(start).Seconds()
	if len(summary.Failures) == 0 {
		summary.Status = "success"
	} else {
		summary.Status = "partial"
	}

	p.log.Info("ingest complete",
		"files", summary.FilesProcessed,
		"documents", summary.DocumentsUpserted,
		"chunks", summary.ChunksCreated,
		"failures", len(summary.Failures),
		"elapsed_s", summary.ElapsedSeconds)
	return summary, nil
}

// ingestFile runs extract, chunk, embed and store for one file and returns
// the number of chunks written.
func (p *Pipeline) ingestFile(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	doc, err := extract.File(path)
	if err != nil {
		return 0, err
	}

	chunks, err := chunker.Split(doc, chunker.Config{
		ChunkSize:    p.cfg.ChunkSize,
		ChunkOverlap: p.cfg.ChunkOverlap,
	})
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks produced")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	// Chunk IDs are deterministic per doc and index, so the new set
	// overwrites the old one point for point. Upserting first and trimming
	// leftovers after means a reader sees the previous complete set or the
	// new one, and a failed upsert leaves the previous set intact.
	if err := p.store.Upsert(ctx, chunks, vectors); err != nil {
		return 0, err
	}
	if err := p.store.DeleteFromIndex(ctx, doc.DocID, len(chunks)); err != nil {
		return 0, err
	}

	p.log.Info("document ingested", "doc_id", doc.DocID, "chunks", len(chunks))
	return len(chunks), nil
}

func listSupportedFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if extract.IsSupportedExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
