package bridge

import "testing"

func TestParseIncoming(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
		check   func(t *testing.T, msg IncomingMsg)
	}{
		{
			name: "location changed",
			data: `{"type":"location.changed","path":"/tickets/42"}`,
			check: func(t *testing.T, msg IncomingMsg) {
				if msg.Path != "/tickets/42" {
					t.Errorf("path = %q", msg.Path)
				}
			},
		},
		{
			name: "location with full href",
			data: `{"type":"location.changed","path":"http://localhost:8080/tickets/42?tab=notes"}`,
			check: func(t *testing.T, msg IncomingMsg) {
				if msg.Path != "/tickets/42?tab=notes" {
					t.Errorf("origin not stripped: %q", msg.Path)
				}
			},
		},
		{
			name: "location with bare origin",
			data: `{"type":"location.changed","path":"https://console.local"}`,
			check: func(t *testing.T, msg IncomingMsg) {
				if msg.Path != "/" {
					t.Errorf("path = %q", msg.Path)
				}
			},
		},
		{
			name: "path without leading slash",
			data: `{"type":"title.changed","path":"tickets/42","title":"Jam"}`,
			check: func(t *testing.T, msg IncomingMsg) {
				if msg.Path != "/tickets/42" {
					t.Errorf("slash not added: %q", msg.Path)
				}
			},
		},
		{
			name: "session request",
			data: `{"type":"session.request"}`,
		},
		{
			name: "bare ack",
			data: `{"id":"cmd-3","ok":true}`,
			check: func(t *testing.T, msg IncomingMsg) {
				if msg.ID != "cmd-3" || msg.OK == nil || !*msg.OK {
					t.Errorf("ack fields: %+v", msg)
				}
			},
		},
		{
			name:    "location without path",
			data:    `{"type":"location.changed"}`,
			wantErr: true,
		},
		{
			name:    "title without path",
			data:    `{"type":"title.changed","title":"Jam"}`,
			wantErr: true,
		},
		{
			name:    "unknown type",
			data:    `{"type":"tabs.explode"}`,
			wantErr: true,
		},
		{
			name:    "no type no id",
			data:    `{"ok":true}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			data:    `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseIncoming([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, msg)
			}
		})
	}
}

func TestSendWithoutConnection(t *testing.T) {
	srv := New(0)

	// A disconnected bridge drops outgoing messages silently.
	if err := srv.Send(OutgoingMsg{Action: "navigate", Path: "/tickets"}); err != nil {
		t.Errorf("Send without connection: %v", err)
	}
	if srv.Connected() {
		t.Error("fresh server reports connected")
	}
}
