package identity_test

import (
	"testing"

	"github.com/nandakv/regio/internal/identity"
)

func TestFreshUidPerSignIn(t *testing.T) {
	p := identity.NewProvider()

	a, err := p.SignInAnonymously()
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	b, err := p.SignInAnonymously()
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if a == b {
		t.Fatal("two sign-ins yielded the same uid")
	}
	if !p.Active(a) || !p.Active(b) {
		t.Fatal("signed-in uids not active")
	}
}

func TestSignOutInvalidates(t *testing.T) {
	p := identity.NewProvider()
	uid, _ := p.SignInAnonymously()

	p.SignOut(uid)
	if p.Active(uid) {
		t.Fatal("uid still active after sign out")
	}
	// unknown uid is a no-op
	p.SignOut("nope")
}
