package entitlement

import (
	"context"
	"testing"

	"github.com/storyloom/storyloom/internal/store"
)

func TestStoreProvider(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()
	ctx := context.Background()

	p := NewStoreProvider(st)

	t.Run("unknown person is not entitled", func(t *testing.T) {
		ok, err := p.CanGenerate(ctx, "stranger")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatal("unknown person must not be entitled")
		}
	})

	t.Run("new person defaults to not entitled", func(t *testing.T) {
		if _, err := st.EnsurePerson(ctx, "p1"); err != nil {
			t.Fatalf("ensure person: %v", err)
		}
		ok, err := p.CanGenerate(ctx, "p1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Fatal("new person must not be entitled")
		}
	})

	t.Run("grant and revoke", func(t *testing.T) {
		if err := st.SetCanGenerate(ctx, "p1", true); err != nil {
			t.Fatalf("grant: %v", err)
		}
		if ok, _ := p.CanGenerate(ctx, "p1"); !ok {
			t.Fatal("grant did not take effect")
		}
		if err := st.SetCanGenerate(ctx, "p1", false); err != nil {
			t.Fatalf("revoke: %v", err)
		}
		if ok, _ := p.CanGenerate(ctx, "p1"); ok {
			t.Fatal("revoke did not take effect")
		}
	})
}

func TestStatic(t *testing.T) {
	if ok, _ := Static(true).CanGenerate(context.Background(), "anyone"); !ok {
		t.Fatal("Static(true) should allow")
	}
	if ok, _ := Static(false).CanGenerate(context.Background(), "anyone"); ok {
		t.Fatal("Static(false) should deny")
	}
}
