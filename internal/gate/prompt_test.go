package gate_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openkcm/session-gateway/internal/gate"
)

var policy = gate.Policy{
	CatalogPath:    "/premium",
	CheckoutPrefix: "/premium/checkout",
	SettleDelay:    100 * time.Millisecond,
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name       string
		prompt     gate.Prompt
		event      gate.Event
		wantPrompt gate.Prompt
		wantNav    gate.Navigation
	}{
		{
			name:       "open with explicit path",
			prompt:     gate.Closed{},
			event:      gate.OpenRequested{Mode: gate.ModeSignup, Path: "/courses/42", Current: "/"},
			wantPrompt: gate.Open{Mode: gate.ModeSignup, Path: "/courses/42"},
		},
		{
			name:       "open defaults to the current path",
			prompt:     gate.Closed{},
			event:      gate.OpenRequested{Mode: gate.ModeLogin, Current: "/dashboard"},
			wantPrompt: gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
		},
		{
			name:       "unknown mode opens login",
			prompt:     gate.Closed{},
			event:      gate.OpenRequested{Mode: "sso", Current: "/dashboard"},
			wantPrompt: gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
		},
		{
			name:       "open while open switches mode",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
			event:      gate.OpenRequested{Mode: gate.ModeSignup, Current: "/dashboard"},
			wantPrompt: gate.Open{Mode: gate.ModeSignup, Path: "/dashboard"},
		},
		{
			name:       "keep open opens a closed prompt",
			prompt:     gate.Closed{},
			event:      gate.OpenRequested{Mode: gate.ModeLogin, Current: "/dashboard", KeepOpen: true},
			wantPrompt: gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
		},
		{
			name:       "keep open leaves an open prompt alone",
			prompt:     gate.Open{Mode: gate.ModeSignup, Path: "/dashboard"},
			event:      gate.OpenRequested{Mode: gate.ModeLogin, Current: "/dashboard/api/stats.json", KeepOpen: true},
			wantPrompt: gate.Open{Mode: gate.ModeSignup, Path: "/dashboard"},
		},
		{
			name:       "authenticated close resumes after the settle delay",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
			event:      gate.CloseRequested{Authenticated: true},
			wantPrompt: gate.Closed{},
			wantNav:    gate.Navigation{Target: "/dashboard", Delay: 100 * time.Millisecond},
		},
		{
			name:       "dismissed prompt goes back",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
			event:      gate.CloseRequested{},
			wantPrompt: gate.Closed{},
			wantNav:    gate.Navigation{Back: true},
		},
		{
			name:       "dismissed checkout goes to the catalog",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/premium/checkout"},
			event:      gate.CloseRequested{},
			wantPrompt: gate.Closed{},
			wantNav:    gate.Navigation{Target: "/premium"},
		},
		{
			name:       "dismissed checkout sub route goes to the catalog",
			prompt:     gate.Open{Mode: gate.ModeSignup, Path: "/premium/checkout/annual?coupon=x"},
			event:      gate.CloseRequested{},
			wantPrompt: gate.Closed{},
			wantNav:    gate.Navigation{Target: "/premium"},
		},
		{
			name:       "authentication auto-closes",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
			event:      gate.AuthChanged{Authenticated: true},
			wantPrompt: gate.Closed{},
			wantNav:    gate.Navigation{Target: "/dashboard", Delay: 100 * time.Millisecond},
		},
		{
			name:       "losing authentication keeps the prompt",
			prompt:     gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
			event:      gate.AuthChanged{},
			wantPrompt: gate.Open{Mode: gate.ModeLogin, Path: "/dashboard"},
		},
		{
			name:       "close while closed does nothing",
			prompt:     gate.Closed{},
			event:      gate.CloseRequested{Authenticated: true},
			wantPrompt: gate.Closed{},
		},
		{
			name:       "auth change while closed does nothing",
			prompt:     gate.Closed{},
			event:      gate.AuthChanged{Authenticated: true},
			wantPrompt: gate.Closed{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, nav := gate.Reduce(tt.prompt, tt.event, policy)
			assert.Equal(t, tt.wantPrompt, prompt)
			assert.Equal(t, tt.wantNav, nav)
			assert.Equal(t, tt.wantNav == gate.Navigation{}, nav.None())
		})
	}
}

func TestReduce_CheckoutWithoutPolicy(t *testing.T) {
	_, nav := gate.Reduce(gate.Open{Mode: gate.ModeLogin, Path: "/premium/checkout"}, gate.CloseRequested{}, gate.Policy{})
	assert.Equal(t, gate.Navigation{Back: true}, nav)
}

func TestNavigation_JSON(t *testing.T) {
	b, err := json.Marshal(gate.Navigation{Target: "/dashboard", Delay: 100 * time.Millisecond})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"target":"/dashboard","delayMs":100}`, string(b))

	b, err = json.Marshal(gate.Navigation{Back: true})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"back":true}`, string(b))
}

func TestViewOf(t *testing.T) {
	assert.Equal(t, gate.PromptView{}, gate.ViewOf(gate.Closed{}))
	assert.Equal(t, gate.PromptView{Open: true, Mode: gate.ModeSignup, Path: "/courses"}, gate.ViewOf(gate.Open{Mode: gate.ModeSignup, Path: "/courses"}))
}
