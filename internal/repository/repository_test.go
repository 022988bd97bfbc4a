package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/db"
	"github.com/Aswd-LV/urbanshade-OS-sub000/internal/model"
)

func openTestDB(t *testing.T) *pgxpool.Pool {
	url := os.Getenv("ADMIN_ACTIONS_TEST_DB")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("ADMIN_ACTIONS_TEST_DB or DATABASE_URL not set")
		return nil
	}
	pool, err := db.NewPool(context.Background(), url)
	if err != nil {
		t.Skipf("db unavailable: %v", err)
		return nil
	}
	if err := db.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func TestVIPDuplicateGrant(t *testing.T) {
	pool := openTestDB(t)
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	userID := uuid.NewString()
	vip := model.VIP{UserID: userID, GrantedBy: uuid.NewString(), Reason: "test", GrantedAt: time.Now().UTC()}
	if err := store.GrantVIP(ctx, vip); err != nil {
		t.Fatalf("first grant: %v", err)
	}
	t.Cleanup(func() {
		_, _ = store.RevokeVIP(context.Background(), userID)
	})

	if err := store.GrantVIP(ctx, vip); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestInboxIdempotentInsert(t *testing.T) {
	pool := openTestDB(t)
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	msg := model.InboxMessage{
		ID:          uuid.NewString(),
		BroadcastID: uuid.NewString(),
		RecipientID: uuid.NewString(),
		Message:     "test broadcast",
		MessageType: "navi_broadcast",
		Priority:    "info",
		CreatedAt:   time.Now().UTC(),
	}
	inserted, err := store.InsertInboxMessage(ctx, msg)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert should report inserted")
	}

	msg.ID = uuid.NewString()
	inserted, err = store.InsertInboxMessage(ctx, msg)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate (broadcast, recipient) should not insert")
	}
}

func TestBanExpirySweep(t *testing.T) {
	pool := openTestDB(t)
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	target := uuid.NewString()
	past := time.Now().UTC().Add(-time.Hour)
	action := model.ModerationAction{
		ID:           uuid.NewString(),
		TargetUserID: &target,
		ActionType:   "temp_ban",
		Reason:       "test",
		ExpiresAt:    &past,
		CreatedBy:    uuid.NewString(),
		CreatedAt:    past.Add(-time.Hour),
		IsActive:     true,
	}
	if err := store.InsertModerationAction(ctx, action); err != nil {
		t.Fatalf("insert: %v", err)
	}

	expired, err := store.DeactivateExpiredBans(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if expired < 1 {
		t.Fatalf("expected at least 1 expired ban, got %d", expired)
	}

	banned, err := store.HasActiveBan(ctx, target, time.Now().UTC())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if banned {
		t.Fatal("ban still active after sweep")
	}
}

func TestSiteLockSingleton(t *testing.T) {
	pool := openTestDB(t)
	defer pool.Close()
	store := NewStore(pool)
	ctx := context.Background()

	now := time.Now().UTC()
	lockedBy := uuid.NewString()
	reason := "drill"
	if err := store.SetSiteLock(ctx, model.SiteLock{
		ID: "global", IsLocked: true, LockReason: &reason, LockedAt: &now, LockedBy: &lockedBy,
	}); err != nil {
		t.Fatalf("lock: %v", err)
	}
	t.Cleanup(func() {
		_ = store.SetSiteLock(context.Background(), model.SiteLock{ID: "global", IsLocked: false})
	})

	lock, err := store.GetSiteLock(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !lock.IsLocked || lock.LockReason == nil || *lock.LockReason != "drill" {
		t.Fatalf("unexpected lock state: %+v", lock)
	}

	if err := store.SetSiteLock(ctx, model.SiteLock{ID: "global", IsLocked: false}); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	lock, err = store.GetSiteLock(ctx)
	if err != nil {
		t.Fatalf("get after unlock: %v", err)
	}
	if lock.IsLocked {
		t.Fatal("still locked")
	}
}
