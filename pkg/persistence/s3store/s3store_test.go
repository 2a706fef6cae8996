package s3store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssdkconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/driftlock/kernel/pkg/audit"
)

type fixtureAction struct{ Delta int }

func (a fixtureAction) CorrelationID() string { return "c1" }
func (a fixtureAction) Description() string   { return "delta" }

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// fakeBucket is a minimal in-memory stand-in for an S3-compatible object
// store's PUT/GET/HEAD surface, enough to exercise Archive/Reload without
// real AWS credentials or network access.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeBucket() *fakeBucket { return &fakeBucket{objects: map[string][]byte{}} }

func (b *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		b.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := b.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	case http.MethodHead:
		if _, ok := b.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, server *httptest.Server) *Store {
	t.Helper()
	ctx := context.Background()
	cfg, err := awssdkconfig.LoadDefaultConfig(ctx,
		awssdkconfig.WithRegion("us-east-1"),
		awssdkconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("LoadDefaultConfig: %v", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(server.URL)
		o.UsePathStyle = true
	})
	return &Store{client: client, bucket: "kernel-test", prefix: "logs/"}
}

func buildLog(t *testing.T) *audit.Log[fixtureAction] {
	t.Helper()
	log := audit.New[fixtureAction]()
	init, err := audit.NewInitializationEvent[fixtureAction]("id-1", epoch, "zero", "")
	if err != nil {
		t.Fatalf("NewInitializationEvent: %v", err)
	}
	if err := log.Append(init); err != nil {
		t.Fatalf("Append: %v", err)
	}
	accepted, err := audit.NewAcceptedEvent[fixtureAction]("id-2", epoch.Add(time.Second), fixtureAction{Delta: 1}, "agent-1", "zero", "one", "ok", log.Entries()[0].EntryHash, nil)
	if err != nil {
		t.Fatalf("NewAcceptedEvent: %v", err)
	}
	if err := log.Append(accepted); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return log
}

func TestArchiveAndReloadRoundTrip(t *testing.T) {
	bucket := newFakeBucket()
	server := httptest.NewServer(bucket)
	defer server.Close()

	store := newTestStore(t, server)
	ctx := context.Background()

	log := buildLog(t)
	if err := Archive[fixtureAction](ctx, store, "default", log); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	exists, err := store.Exists(ctx, "default")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Fatal("Exists = false after Archive, want true")
	}

	reloaded, err := Reload[fixtureAction](ctx, store, "default")
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded.Len() = %d, want 2", reloaded.Len())
	}
	if vr := reloaded.Verify(); !vr.IsValid {
		t.Fatalf("reloaded log Verify() = %+v, want valid", vr)
	}
}

func TestExistsFalseForMissingJurisdiction(t *testing.T) {
	bucket := newFakeBucket()
	server := httptest.NewServer(bucket)
	defer server.Close()

	store := newTestStore(t, server)
	exists, err := store.Exists(context.Background(), "never-archived")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Fatal("Exists = true for a jurisdiction that was never archived")
	}
}
