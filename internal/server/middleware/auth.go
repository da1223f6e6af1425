package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/probmarket/ledger/internal/crypto"
	"github.com/probmarket/ledger/internal/domain"
)

// Request headers carrying operation authentication.
const (
	HeaderSignature = "X-Ledger-Signature"
	HeaderTimestamp = "X-Ledger-Timestamp"

	// HeaderCaller names the caller directly when signature auth is
	// disabled. Development only.
	HeaderCaller = "X-Ledger-Caller"
)

// maxBodyBytes bounds the request body read for digest computation.
const maxBodyBytes = 1 << 20

type callerKey struct{}

// CallerFrom returns the authenticated caller identity set by Auth, or ""
// when the request was not authenticated.
func CallerFrom(ctx context.Context) string {
	caller, _ := ctx.Value(callerKey{}).(string)
	return caller
}

// withCaller is exposed for handler tests.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// Auth returns middleware that authenticates every request by recovering the
// signer address from a secp256k1 signature over the operation digest. The
// signed timestamp must fall within window of server time. GET requests pass
// through unauthenticated; reads are public.
//
// When disabled is true, the caller identity is taken from the
// X-Ledger-Caller header without verification.
func Auth(disabled bool, window time.Duration) func(http.Handler) http.Handler {
	if window <= 0 {
		window = 2 * time.Minute
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			if disabled {
				caller := r.Header.Get(HeaderCaller)
				if caller == "" {
					writeUnauthorized(w, "missing caller header")
					return
				}
				next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), domain.NormalizeAddress(caller))))
				return
			}

			sig := r.Header.Get(HeaderSignature)
			if sig == "" {
				writeUnauthorized(w, "missing signature")
				return
			}
			ts, err := strconv.ParseInt(r.Header.Get(HeaderTimestamp), 10, 64)
			if err != nil {
				writeUnauthorized(w, "missing or invalid timestamp")
				return
			}
			if drift := time.Since(time.Unix(ts, 0)); drift > window || drift < -window {
				writeUnauthorized(w, "timestamp outside signature window")
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
			if err != nil {
				writeUnauthorized(w, "unreadable body")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			digest := crypto.OperationDigest(r.Method, r.URL.Path, ts, body)
			addr, err := crypto.RecoverAddress(digest, sig)
			if err != nil {
				writeUnauthorized(w, "invalid signature")
				return
			}

			caller := domain.NormalizeAddress(addr.Hex())
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
