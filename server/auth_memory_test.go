package server

import "testing"

func TestMemoryAuthenticator(t *testing.T) {
	a := NewMemoryAuthenticator(map[string]string{"alice": "hunter2"}, true)

	if _, err := a.Authenticate("alice", "hunter2"); err != nil {
		t.Fatalf("Authenticate(alice, correct) error: %v", err)
	}
	if _, err := a.Authenticate("alice", "wrong"); err == nil {
		t.Fatal("Authenticate(alice, wrong) succeeded, want error")
	}
	if _, err := a.Authenticate("nobody", "x"); err == nil {
		t.Fatal("Authenticate(unknown user) succeeded, want error")
	}
	if _, err := a.Authenticate("anonymous", "anything"); err != nil {
		t.Fatalf("Authenticate(anonymous) error: %v, want allowed", err)
	}
	if _, err := a.Authenticate("ftp", "anything"); err != nil {
		t.Fatalf("Authenticate(ftp) error: %v, want allowed", err)
	}
}

func TestMemoryAuthenticatorAnonymousDisabled(t *testing.T) {
	a := NewMemoryAuthenticator(nil, false)
	if _, err := a.Authenticate("anonymous", "x"); err == nil {
		t.Fatal("Authenticate(anonymous) succeeded with allowAnonymous=false, want error")
	}
}
