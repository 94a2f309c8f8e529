package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/playsync/sessiond/pkg/domain"
)

func TestProviderVerifier_Google(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("id_token") != "good-token" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"email":"host@example.com"}`))
	}))
	defer srv.Close()

	v := NewProviderVerifier(ProviderVerifierConfig{GoogleTokenInfoURL: srv.URL})

	subject, err := v.Verify(context.Background(), ProviderGoogle, "good-token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != "host@example.com" {
		t.Errorf("subject = %q, want %q", subject, "host@example.com")
	}

	if _, err := v.Verify(context.Background(), ProviderGoogle, "bad-token"); !errors.Is(err, domain.ErrIdentityRejected) {
		t.Errorf("bad token err = %v, want ErrIdentityRejected", err)
	}
}

func TestProviderVerifier_Twitch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"user_id":"44322889"}`))
	}))
	defer srv.Close()

	v := NewProviderVerifier(ProviderVerifierConfig{TwitchValidateURL: srv.URL})

	subject, err := v.Verify(context.Background(), ProviderTwitch, "good-token")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != "44322889" {
		t.Errorf("subject = %q, want %q", subject, "44322889")
	}
}

func TestProviderVerifier_EmptySubjectRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	v := NewProviderVerifier(ProviderVerifierConfig{
		GoogleTokenInfoURL: srv.URL,
		TwitchValidateURL:  srv.URL,
	})

	for _, provider := range []string{ProviderGoogle, ProviderTwitch} {
		if _, err := v.Verify(context.Background(), provider, "token"); !errors.Is(err, domain.ErrIdentityRejected) {
			t.Errorf("%s empty subject err = %v, want ErrIdentityRejected", provider, err)
		}
	}
}

func TestProviderVerifier_UnknownProvider(t *testing.T) {
	v := NewProviderVerifier(ProviderVerifierConfig{})

	_, err := v.Verify(context.Background(), "myspace", "token")
	if !errors.Is(err, domain.ErrIdentityRejected) {
		t.Errorf("unknown provider err = %v, want ErrIdentityRejected", err)
	}
}
