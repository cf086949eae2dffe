package actorctx_test

import (
	"context"
	"testing"

	"github.com/geocoder89/fellowship/internal/actorctx"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := actorctx.UserIDFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no actor")
	}

	ctx := actorctx.WithUserID(context.Background(), "u-1")
	id, ok := actorctx.UserIDFrom(ctx)
	if !ok || id != "u-1" {
		t.Fatalf("got (%q,%v), want (u-1,true)", id, ok)
	}

	if _, ok := actorctx.UserIDFrom(actorctx.WithUserID(context.Background(), "")); ok {
		t.Fatalf("blank id should report absent")
	}
}
