package agent

import "testing"

const replyID = "6f1c2e4a-9b7d-4c3e-8a51-2d9f0b6e7c13"

func TestParseReply(t *testing.T) {
	t.Parallel()

	known := func(id string) bool { return id == "abc" }

	tests := []struct {
		text string
		want reply
		ok   bool
	}{
		{"confirm abc", reply{action: replyConfirm, id: "abc"}, true},
		{"Confirm abc create_snapshot", reply{action: replyConfirm, id: "abc", ack: "create_snapshot"}, true},
		{"yes abc create snapshot", reply{action: replyConfirm, id: "abc", ack: "create snapshot"}, true},
		{"confirm " + replyID, reply{action: replyConfirm, id: replyID}, true},
		{"  cancel abc  ", reply{action: replyReject, id: "abc"}, true},
		{"no abc", reply{action: replyReject, id: "abc"}, true},
		{"reject abc", reply{action: replyReject, id: "abc"}, true},
		{"deny " + replyID, reply{action: replyReject, id: replyID}, true},
		{"pending", reply{action: replyPending}, true},
		{"confirm xyz", reply{}, false},
		{"yes list all filesystems", reply{}, false},
		{"approve snapshot creation", reply{}, false},
		{"confirm the cluster is healthy", reply{}, false},
		{"no snapshots please", reply{}, false},
		{"confirm", reply{}, false},
		{"list all filesystems", reply{}, false},
		{"", reply{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			got, ok := parseReply(tt.text, known)
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseReply(%q) = %+v, %v; want %+v, %v", tt.text, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseReply_NilKnown(t *testing.T) {
	t.Parallel()

	if _, ok := parseReply("confirm abc", nil); ok {
		t.Error("non-UUID id must not parse without a lookup")
	}
	if r, ok := parseReply("cancel "+replyID, nil); !ok || r.id != replyID {
		t.Errorf("parseReply = %+v, %v", r, ok)
	}
}
