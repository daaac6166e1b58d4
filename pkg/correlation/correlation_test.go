// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package correlation

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestWithRequestID(t *testing.T) {
	tests := []struct {
		name      string
		ctx       context.Context
		requestID string
		want      string
	}{
		{
			name:      "Add request ID to context",
			ctx:       context.Background(),
			requestID: "test-request-id",
			want:      "test-request-id",
		},
		{
			name:      "Add request ID to nil context",
			ctx:       nil,
			requestID: "test-request-id-2",
			want:      "test-request-id-2",
		},
		{
			name:      "Add empty request ID",
			ctx:       context.Background(),
			requestID: "",
			want:      "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(tt.ctx, tt.requestID)
			if ctx == nil {
				t.Fatal("WithRequestID returned nil context")
			}
			got := GetRequestID(ctx)
			if got != tt.want {
				t.Errorf("GetRequestID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want string
	}{
		{
			name: "Get request ID from context",
			ctx:  WithRequestID(context.Background(), "test-id"),
			want: "test-id",
		},
		{
			name: "Get from context without request ID",
			ctx:  context.Background(),
			want: "",
		},
		{
			name: "Get from nil context",
			ctx:  nil,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetRequestID(tt.ctx)
			if got != tt.want {
				t.Errorf("GetRequestID() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		got := NewID()

		// Verify it's a valid UUID
		if _, err := uuid.Parse(got); err != nil {
			t.Errorf("NewID() returned invalid UUID: %v, error: %v", got, err)
		}

		// Verify it's unique
		if seen[got] {
			t.Errorf("NewID() returned duplicate ID: %v", got)
		}
		seen[got] = true
	}
}

func TestGetOrGenerate(t *testing.T) {
	existingID := "existing-request-id"

	tests := []struct {
		name      string
		ctx       context.Context
		wantExact string
		wantNew   bool
	}{
		{
			name:      "Get existing request ID",
			ctx:       WithRequestID(context.Background(), existingID),
			wantExact: existingID,
			wantNew:   false,
		},
		{
			name:    "Generate new request ID from context without one",
			ctx:     context.Background(),
			wantNew: true,
		},
		{
			name:    "Generate new request ID from nil context",
			ctx:     nil,
			wantNew: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetOrGenerate(tt.ctx)

			if tt.wantNew {
				if _, err := uuid.Parse(got); err != nil {
					t.Errorf("GetOrGenerate() returned invalid UUID: %v, error: %v", got, err)
				}
			} else if got != tt.wantExact {
				t.Errorf("GetOrGenerate() = %v, want %v", got, tt.wantExact)
			}
		})
	}
}

func TestFromHeader(t *testing.T) {
	if got := FromHeader("client-supplied"); got != "client-supplied" {
		t.Errorf("FromHeader() = %v, want client-supplied", got)
	}

	got := FromHeader("")
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("FromHeader(\"\") returned invalid UUID: %v, error: %v", got, err)
	}
}

func TestRequestIDPropagation(t *testing.T) {
	// Request ID must survive into derived contexts
	requestID := "parent-request-id"

	parentCtx := WithRequestID(context.Background(), requestID)
	childCtx := context.WithValue(parentCtx, contextKey("other-key"), "other-value")

	got := GetRequestID(childCtx)
	if got != requestID {
		t.Errorf("Request ID not propagated to child context, got %v, want %v", got, requestID)
	}
}

func TestContextKeyIsolation(t *testing.T) {
	// A plain string key with the same text must not collide
	requestID := "test-request-id"

	type plainKey string
	ctx := context.Background()
	ctx = context.WithValue(ctx, plainKey("request-id"), "wrong-value")
	ctx = WithRequestID(ctx, requestID)

	got := GetRequestID(ctx)
	if got != requestID {
		t.Errorf("Context key collision detected, got %v, want %v", got, requestID)
	}
}

func TestConstants(t *testing.T) {
	if RequestIDHeader != "X-Request-ID" {
		t.Errorf("RequestIDHeader = %v, want X-Request-ID", RequestIDHeader)
	}
}

func BenchmarkNewID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		NewID()
	}
}

func BenchmarkGetOrGenerate(b *testing.B) {
	ctx := WithRequestID(context.Background(), NewID())
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		GetOrGenerate(ctx)
	}
}
