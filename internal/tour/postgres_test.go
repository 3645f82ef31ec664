package tour

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/lib/pq"
)

// startPostgres spins up a throwaway Postgres container with the project
// migrations applied. Skipped in -short mode since it needs Docker.
func startPostgres(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("arcade_test"),
		tcpostgres.WithUsername("arcade"),
		tcpostgres.WithPassword("arcade"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	for _, name := range []string{"000001_create_users.up.sql", "000002_create_tours.up.sql"} {
		stmt, err := os.ReadFile(filepath.Join("..", "..", "migrations", name))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", name, err)
		}
		if _, err := db.ExecContext(ctx, string(stmt)); err != nil {
			t.Fatalf("failed to apply migration %s: %v", name, err)
		}
	}

	return db
}

func seedUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(
		`INSERT INTO users (id, provider_id, name, email) VALUES ($1, $2, 'Ada', 'ada@example.com')`,
		id, uuid.New().String())
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return id
}

func TestPostgresTourRepository(t *testing.T) {
	db := startPostgres(t)
	repo := NewPostgresTourRepository(db, nil)
	ctx := context.Background()

	ownerID := seedUser(t, db)
	otherID := seedUser(t, db)

	draft := Draft{
		Title:       "Onboarding walkthrough",
		Description: "First-run product demo",
		Visibility:  VisibilityPrivate,
		Steps: []Step{
			{
				Kind:       StepKindImage,
				ContentRef: "/uploads/file-1-000000001.png",
				Annotation: Annotation{Text: "Click here", Position: Position{X: 25, Y: 60}},
				Transition: TransitionSlide,
				DurationMs: 4000,
			},
			{
				Kind:       StepKindVideo,
				ContentRef: "/uploads/file-2-000000002.mp4",
			},
		},
	}

	t.Run("create and get round-trips steps", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, draft)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if created.ID == "" || created.ShareToken == "" {
			t.Fatal("expected generated ID and share token")
		}
		if created.CreatorID != ownerID {
			t.Errorf("CreatorID = %q, want %q", created.CreatorID, ownerID)
		}

		got, err := repo.GetByIDForOwner(ctx, created.ID, ownerID)
		if err != nil {
			t.Fatalf("GetByIDForOwner() error = %v", err)
		}
		if len(got.Steps) != 2 {
			t.Fatalf("len(Steps) = %d, want 2", len(got.Steps))
		}
		if got.Steps[0].Annotation.Text != "Click here" {
			t.Errorf("annotation text = %q, want %q", got.Steps[0].Annotation.Text, "Click here")
		}
		if got.Steps[0].Annotation.Position.X != 25 {
			t.Errorf("annotation x = %v, want 25", got.Steps[0].Annotation.Position.X)
		}
		if got.Steps[0].Transition != TransitionSlide {
			t.Errorf("transition = %q, want slide", got.Steps[0].Transition)
		}
		// Second step was normalized on write
		if got.Steps[1].Transition != TransitionFade {
			t.Errorf("transition = %q, want fade default", got.Steps[1].Transition)
		}
		if got.Steps[1].DurationMs != DefaultStepDurationMs {
			t.Errorf("duration = %d, want %d", got.Steps[1].DurationMs, DefaultStepDurationMs)
		}
		for i, s := range got.Steps {
			if s.Order != i {
				t.Errorf("step %d order = %d, want %d", i, s.Order, i)
			}
			if s.ID == "" {
				t.Errorf("step %d has no ID", i)
			}
		}
	})

	t.Run("empty steps decode as empty slice", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, Draft{Title: "Empty", Steps: []Step{}})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := repo.GetByIDForOwner(ctx, created.ID, ownerID)
		if err != nil {
			t.Fatalf("GetByIDForOwner() error = %v", err)
		}
		if got.Steps == nil || len(got.Steps) != 0 {
			t.Errorf("Steps = %v, want empty non-nil slice", got.Steps)
		}
	})

	t.Run("owner scoping", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, draft)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := repo.GetByIDForOwner(ctx, created.ID, otherID); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("GetByIDForOwner() with other owner error = %v, want ErrTourNotFound", err)
		}
		if _, err := repo.GetByIDForOwner(ctx, uuid.New().String(), ownerID); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("GetByIDForOwner() with unknown ID error = %v, want ErrTourNotFound", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		listOwner := seedUser(t, db)
		first, err := repo.Create(ctx, listOwner, Draft{Title: "First", Steps: []Step{}})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		time.Sleep(10 * time.Millisecond)
		second, err := repo.Create(ctx, listOwner, Draft{Title: "Second", Steps: []Step{}})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		tours, err := repo.ListByOwner(ctx, listOwner)
		if err != nil {
			t.Fatalf("ListByOwner() error = %v", err)
		}
		if len(tours) != 2 {
			t.Fatalf("len(tours) = %d, want 2", len(tours))
		}
		if tours[0].ID != second.ID || tours[1].ID != first.ID {
			t.Errorf("list order = [%s %s], want newest first", tours[0].Title, tours[1].Title)
		}
	})

	t.Run("share token increments view count", func(t *testing.T) {
		public := draft
		public.Visibility = VisibilityPublic
		created, err := repo.Create(ctx, ownerID, public)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		for want := 1; want <= 2; want++ {
			got, err := repo.GetByShareToken(ctx, created.ShareToken)
			if err != nil {
				t.Fatalf("GetByShareToken() error = %v", err)
			}
			if got.ViewCount != want {
				t.Errorf("ViewCount = %d, want %d", got.ViewCount, want)
			}
		}
	})

	t.Run("private tour not resolvable by share token", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, draft)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if _, err := repo.GetByShareToken(ctx, created.ShareToken); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("GetByShareToken() on private tour error = %v, want ErrTourNotFound", err)
		}

		// A rejected lookup must not bump the counter
		got, err := repo.GetByIDForOwner(ctx, created.ID, ownerID)
		if err != nil {
			t.Fatalf("GetByIDForOwner() error = %v", err)
		}
		if got.ViewCount != 0 {
			t.Errorf("ViewCount = %d after rejected share lookup, want 0", got.ViewCount)
		}
	})

	t.Run("update preserves identity fields", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, draft)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		updated, err := repo.Update(ctx, created.ID, ownerID, Draft{
			Title:      "Renamed",
			Visibility: VisibilityPublic,
			Steps:      []Step{draft.Steps[0]},
		})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if updated.Title != "Renamed" {
			t.Errorf("Title = %q, want Renamed", updated.Title)
		}
		if updated.ID != created.ID {
			t.Errorf("ID changed on update: %q -> %q", created.ID, updated.ID)
		}
		if updated.ShareToken != created.ShareToken {
			t.Errorf("ShareToken changed on update: %q -> %q", created.ShareToken, updated.ShareToken)
		}
		if len(updated.Steps) != 1 {
			t.Errorf("len(Steps) = %d, want 1 after full replace", len(updated.Steps))
		}

		if _, err := repo.Update(ctx, created.ID, otherID, Draft{Title: "Hijack", Steps: []Step{}}); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("Update() with other owner error = %v, want ErrTourNotFound", err)
		}
	})

	t.Run("delete", func(t *testing.T) {
		created, err := repo.Create(ctx, ownerID, draft)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.Delete(ctx, created.ID, otherID); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("Delete() with other owner error = %v, want ErrTourNotFound", err)
		}
		if err := repo.Delete(ctx, created.ID, ownerID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(ctx, created.ID, ownerID); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("second Delete() error = %v, want ErrTourNotFound", err)
		}
		if _, err := repo.GetByIDForOwner(ctx, created.ID, ownerID); !errors.Is(err, ErrTourNotFound) {
			t.Errorf("GetByIDForOwner() after delete error = %v, want ErrTourNotFound", err)
		}
	})
}
