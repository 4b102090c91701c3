package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
	extract_mocks "clarifyai/internal/extract/mocks"
	"clarifyai/internal/indexer"
	"clarifyai/internal/llm"
	"clarifyai/internal/service"
	"clarifyai/internal/service/mocks"
	"clarifyai/internal/storage"
	storage_mocks "clarifyai/internal/storage/mocks"
	"clarifyai/internal/vectorstore"
)

func init() {
	// Set default logger to discard output for cleaner test output
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// testContext returns a context for testing.
func testContext() context.Context {
	return context.Background()
}

type documentDeps struct {
	extractor *extract_mocks.MockExtractor
	ingester  *mocks.MockIngester
	docs      *storage_mocks.MockDocumentStore
	generator *mocks.MockGenerator
}

func newDocumentService(t *testing.T) (service.DocumentService, documentDeps) {
	ctrl := gomock.NewController(t)
	d := documentDeps{
		extractor: extract_mocks.NewMockExtractor(ctrl),
		ingester:  mocks.NewMockIngester(ctrl),
		docs:      storage_mocks.NewMockDocumentStore(ctrl),
		generator: mocks.NewMockGenerator(ctrl),
	}
	return service.NewDocumentService(d.extractor, d.ingester, d.docs, d.generator, 0), d
}

func TestDocumentService_Upload(t *testing.T) {
	svc, d := newDocumentService(t)
	ctx := testContext()

	d.extractor.EXPECT().Extract(gomock.Any(), "/tmp/up/report.pdf").Return("revenue grew", nil)
	d.docs.EXPECT().FindByFingerprint(gomock.Any(), "alice", storage.Fingerprint("revenue grew")).Return(nil, storage.ErrNotFound)
	d.ingester.EXPECT().IngestText(gomock.Any(), gomock.Any(), "revenue grew", gomock.Any()).
		DoAndReturn(func(_ context.Context, docID, _ string, extra vectorstore.Metadata) (indexer.IngestResult, error) {
			if extra.String(vectorstore.KeyFilename) != "report.pdf" {
				t.Errorf("filename metadata = %q", extra.String(vectorstore.KeyFilename))
			}
			return indexer.IngestResult{DocID: docID, Chunks: 1, TotalTokens: 3, IndexVersion: "v1"}, nil
		})
	d.docs.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, doc *storage.Document) error {
			if doc.ChunkCount != 1 || doc.TokenCount != 3 || doc.IndexVersion != "v1" {
				t.Errorf("Create() doc = %+v", doc)
			}
			return nil
		})

	res, err := svc.Upload(ctx, service.UploadRequest{Username: "alice", Filename: "report.pdf", Path: "/tmp/up/report.pdf"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if res.Duplicate {
		t.Error("Upload() Duplicate = true, want false")
	}
	if res.Document.ID == "" || res.Document.ID != res.Ingest.DocID {
		t.Errorf("Upload() doc id = %q, ingest doc id = %q", res.Document.ID, res.Ingest.DocID)
	}
}

func TestDocumentService_Upload_Validation(t *testing.T) {
	svc, _ := newDocumentService(t)

	tests := []struct {
		name string
		req  service.UploadRequest
	}{
		{name: "empty filename", req: service.UploadRequest{Username: "a", Path: "/x"}},
		{name: "unsupported type", req: service.UploadRequest{Username: "a", Filename: "photo.png", Path: "/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upload(testContext(), tt.req)
			var vErr *apperr.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Upload() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestDocumentService_Upload_Duplicate(t *testing.T) {
	svc, d := newDocumentService(t)

	existing := &storage.Document{ID: "old", Filename: "a.txt", Username: "alice"}
	d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return("same", nil)
	d.docs.EXPECT().FindByFingerprint(gomock.Any(), "alice", gomock.Any()).Return(existing, nil)

	res, err := svc.Upload(testContext(), service.UploadRequest{Username: "alice", Filename: "a.txt", Path: "/a.txt"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Duplicate || res.Document.ID != "old" {
		t.Errorf("Upload() = %+v, want duplicate of old", res)
	}
}

func TestDocumentService_Upload_DuplicateRecordedConcurrently(t *testing.T) {
	svc, d := newDocumentService(t)

	winner := &storage.Document{ID: "first", Filename: "a.txt", Username: "alice"}
	fp := storage.Fingerprint("same")
	gomock.InOrder(
		d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return("same", nil),
		d.docs.EXPECT().FindByFingerprint(gomock.Any(), "alice", fp).Return(nil, storage.ErrNotFound),
		d.ingester.EXPECT().IngestText(gomock.Any(), gomock.Any(), "same", gomock.Any()).
			Return(indexer.IngestResult{Chunks: 1, TotalTokens: 1}, nil),
		d.docs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(storage.ErrDuplicate),
		d.ingester.EXPECT().DeleteDocument(gomock.Any(), gomock.Any()).Return(nil),
		d.docs.EXPECT().FindByFingerprint(gomock.Any(), "alice", fp).Return(winner, nil),
	)

	res, err := svc.Upload(testContext(), service.UploadRequest{Username: "alice", Filename: "a.txt", Path: "/a.txt"})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !res.Duplicate || res.Document.ID != "first" {
		t.Errorf("Upload() = %+v, want duplicate of first", res)
	}
}

func TestDocumentService_Upload_Failures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(d documentDeps)
		wantErr error
	}{
		{
			name: "extraction fails",
			setup: func(d documentDeps) {
				d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return("", apperr.ErrExtraction)
			},
			wantErr: apperr.ErrExtraction,
		},
		{
			name: "ingestion fails and index is cleaned",
			setup: func(d documentDeps) {
				d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return("text", nil)
				d.docs.EXPECT().FindByFingerprint(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
				d.ingester.EXPECT().IngestText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(indexer.IngestResult{}, apperr.ErrEmbedding)
				d.ingester.EXPECT().DeleteDocument(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantErr: apperr.ErrEmbedding,
		},
		{
			name: "database write fails and index is cleaned",
			setup: func(d documentDeps) {
				d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).Return("text", nil)
				d.docs.EXPECT().FindByFingerprint(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound)
				d.ingester.EXPECT().IngestText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(indexer.IngestResult{Chunks: 1}, nil)
				d.docs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk I/O error"))
				d.ingester.EXPECT().DeleteDocument(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newDocumentService(t)
			tt.setup(d)

			_, err := svc.Upload(testContext(), service.UploadRequest{Username: "u", Filename: "a.txt", Path: "/a.txt"})
			if err == nil {
				t.Fatal("Upload() error = nil, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDocumentService_Delete(t *testing.T) {
	t.Run("existing document", func(t *testing.T) {
		svc, d := newDocumentService(t)
		gomock.InOrder(
			d.docs.EXPECT().Get(gomock.Any(), "doc").Return(&storage.Document{ID: "doc"}, nil),
			d.ingester.EXPECT().DeleteDocument(gomock.Any(), "doc").Return(nil),
			d.docs.EXPECT().Delete(gomock.Any(), "doc").Return(nil),
		)
		if err := svc.Delete(testContext(), "doc"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	})

	t.Run("unknown document", func(t *testing.T) {
		svc, d := newDocumentService(t)
		d.docs.EXPECT().Get(gomock.Any(), "missing").Return(nil, storage.ErrNotFound)
		if err := svc.Delete(testContext(), "missing"); !errors.Is(err, apperr.ErrNotFound) {
			t.Errorf("Delete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestDocumentService_WithLogger(t *testing.T) {
	tests := []struct {
		name        string
		ctxLogger   bool
		wantOwnLogs bool
	}{
		{name: "used without a request logger", ctxLogger: false, wantOwnLogs: true},
		{name: "request logger takes precedence", ctxLogger: true, wantOwnLogs: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			ingester := mocks.NewMockIngester(ctrl)
			docs := storage_mocks.NewMockDocumentStore(ctrl)
			var own, request strings.Builder
			svc := service.NewDocumentService(nil, ingester, docs, nil, 0,
				service.WithLogger(slog.New(slog.NewTextHandler(&own, nil))))

			docs.EXPECT().Get(gomock.Any(), "doc").Return(&storage.Document{ID: "doc"}, nil)
			ingester.EXPECT().DeleteDocument(gomock.Any(), "doc").Return(nil)
			docs.EXPECT().Delete(gomock.Any(), "doc").Return(nil)

			ctx := testContext()
			if tt.ctxLogger {
				ctx = contextutil.WithLogger(ctx, slog.New(slog.NewTextHandler(&request, nil)))
			}
			if err := svc.Delete(ctx, "doc"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}

			if got := strings.Contains(own.String(), "document deleted"); got != tt.wantOwnLogs {
				t.Errorf("service logger got the entry = %v, want %v (%q)", got, tt.wantOwnLogs, own.String())
			}
			if got := strings.Contains(request.String(), "document deleted"); got != tt.ctxLogger {
				t.Errorf("request logger got the entry = %v, want %v (%q)", got, tt.ctxLogger, request.String())
			}
		})
	}
}

func TestDocumentService_Summarize(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(d documentDeps)
		want    string
		wantErr error
	}{
		{
			name: "summary generated",
			setup: func(d documentDeps) {
				d.docs.EXPECT().Get(gomock.Any(), "doc").Return(&storage.Document{ID: "doc"}, nil)
				d.ingester.EXPECT().DocumentChunks(gomock.Any(), "doc").Return([]string{"one", "two"}, nil)
				d.generator.EXPECT().GenerateWithAttempts(gomock.Any(), gomock.Any(), service.DefaultMaxTokens).
					DoAndReturn(func(_ context.Context, prompt string, _ int) (string, []llm.Attempt, error) {
						if !strings.HasSuffix(prompt, "one\n\ntwo") {
							t.Errorf("prompt = %q", prompt)
						}
						return "short summary", []llm.Attempt{{Provider: "groq"}}, nil
					})
			},
			want: "short summary",
		},
		{
			name: "unknown document",
			setup: func(d documentDeps) {
				d.docs.EXPECT().Get(gomock.Any(), "doc").Return(nil, storage.ErrNotFound)
			},
			wantErr: apperr.ErrNotFound,
		},
		{
			name: "no chunks",
			setup: func(d documentDeps) {
				d.docs.EXPECT().Get(gomock.Any(), "doc").Return(&storage.Document{ID: "doc"}, nil)
				d.ingester.EXPECT().DocumentChunks(gomock.Any(), "doc").Return([]string{}, nil)
			},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name: "all providers fail",
			setup: func(d documentDeps) {
				d.docs.EXPECT().Get(gomock.Any(), "doc").Return(&storage.Document{ID: "doc"}, nil)
				d.ingester.EXPECT().DocumentChunks(gomock.Any(), "doc").Return([]string{"text"}, nil)
				d.generator.EXPECT().GenerateWithAttempts(gomock.Any(), gomock.Any(), gomock.Any()).
					Return("", []llm.Attempt{{Provider: "groq", Err: errors.New("429")}}, errors.New("all providers failed"))
			},
			wantErr: apperr.ErrExternalService,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newDocumentService(t)
			tt.setup(d)

			got, err := svc.Summarize(testContext(), "doc")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Summarize() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Summarize() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Summarize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocumentService_Stats(t *testing.T) {
	svc, d := newDocumentService(t)
	d.docs.EXPECT().Totals(gomock.Any()).Return(storage.Totals{Documents: 2, Chunks: 5, Tokens: 900}, nil)
	d.ingester.EXPECT().IndexSize(gomock.Any()).Return(5, nil)
	d.ingester.EXPECT().Version().Return("abc123")

	got, err := svc.Stats(testContext())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	want := service.Stats{Documents: 2, Chunks: 5, Tokens: 900, IndexRecords: 5, IndexVersion: "abc123"}
	if got != want {
		t.Errorf("Stats() = %+v, want %+v", got, want)
	}
}

func TestDocumentService_ImportDirectory(t *testing.T) {
	root := t.TempDir()
	for name, content := range map[string]string{
		"a.txt":         "alpha",
		"b.md":          "beta",
		"dup.txt":       "alpha",
		"bad.pdf":       "x",
		"skip.png":      "x",
		".hidden/c.txt": "hidden",
	} {
		p := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	svc, d := newDocumentService(t)
	d.extractor.EXPECT().Extract(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, path string) (string, error) {
			if strings.HasSuffix(path, ".pdf") {
				return "", apperr.ErrExtraction
			}
			b, err := os.ReadFile(path)
			return string(b), err
		}).Times(4)

	seen := map[string]bool{}
	d.docs.EXPECT().FindByFingerprint(gomock.Any(), "bulk", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, fp string) (*storage.Document, error) {
			if seen[fp] {
				return &storage.Document{ID: "existing"}, nil
			}
			seen[fp] = true
			return nil, storage.ErrNotFound
		}).Times(3)
	d.ingester.EXPECT().IngestText(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(indexer.IngestResult{Chunks: 1}, nil).Times(2)
	d.docs.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	got, err := svc.ImportDirectory(testContext(), root, "bulk")
	if err != nil {
		t.Fatalf("ImportDirectory() error = %v", err)
	}
	if got.Imported != 2 || got.Skipped != 1 || got.Failed != 1 {
		t.Errorf("ImportDirectory() = %+v, want 2 imported, 1 skipped, 1 failed", got)
	}
	if len(got.Errors) != 1 || !strings.HasPrefix(got.Errors[0], "bad.pdf") {
		t.Errorf("Errors = %v", got.Errors)
	}
}
