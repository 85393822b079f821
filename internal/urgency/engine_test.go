package urgency

import (
	"testing"

	"github.com/securizon/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantLvl  models.UrgencyLevel
		wantCat  models.UrgencyCategory
	}{
		{"cancel request", "I need to cancel my order right now", models.UrgencyUrgent, models.CategoryCancelRequest},
		{"address change", "this shipped to wrong address", models.UrgencyUrgent, models.CategoryAddressChange},
		{"damaged product", "the item arrived broken", models.UrgencyHigh, models.CategoryDamagedProduct},
		{"delayed order", "my package hasn't arrived yet", models.UrgencyHigh, models.CategoryDelayedOrder},
		{"no signal", "just wanted to say thanks for the great product", models.UrgencyNormal, models.CategoryGeneral},
		{"case insensitive", "PLEASE CANCEL this order", models.UrgencyUrgent, models.CategoryCancelRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Level != tt.wantLvl || got.Category != tt.wantCat {
				t.Errorf("Classify(%q) = (%s, %s), want (%s, %s)", tt.text, got.Level, got.Category, tt.wantLvl, tt.wantCat)
			}
		})
	}
}

func TestClassifyUrgentTakesPrecedenceOverHigh(t *testing.T) {
	got := Classify("my order arrived broken, please cancel my order")
	if got.Level != models.UrgencyUrgent || got.Category != models.CategoryCancelRequest {
		t.Errorf("urgent tier should win over high tier, got (%s, %s)", got.Level, got.Category)
	}
}

func TestHasLCCTag(t *testing.T) {
	tests := []struct {
		tags []string
		want bool
	}{
		{[]string{"lcc_member"}, true},
		{[]string{"LCC Member"}, true},
		{[]string{"crafter club"}, true},
		{[]string{"Crafter Club"}, true},
		{[]string{"LCCX"}, true},
		{[]string{"vip"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := HasLCCTag(tt.tags); got != tt.want {
			t.Errorf("HasLCCTag(%v) = %v, want %v", tt.tags, got, tt.want)
		}
	}
}

func TestDecidePriorityUrgentCancelForVIP(t *testing.T) {
	u := Classify("I need to cancel my order")
	got := DecidePriority(u, true, 500, 0.1, nil)
	if got.Priority != models.PriorityUrgent {
		t.Fatalf("urgent cancel for a VIP customer should be Priority=urgent, got %s", got.Priority)
	}
	if got.Reason != "urgent request from VIP customer" {
		t.Errorf("unexpected reason: %q", got.Reason)
	}
	foundVIP, foundUrgentTag := false, false
	for _, tag := range got.Tags {
		if tag == "vip" {
			foundVIP = true
		}
		if tag == "urgent_cancel_request" {
			foundUrgentTag = true
		}
	}
	if !foundVIP || !foundUrgentTag {
		t.Errorf("expected vip and urgent_cancel_request tags, got %v", got.Tags)
	}
}

func TestDecidePriorityVIPNoUrgency(t *testing.T) {
	u := Classify("just checking in on my account")
	got := DecidePriority(u, true, 100, 0.1, nil)
	if got.Priority != models.PriorityHigh {
		t.Fatalf("VIP customer with no urgency signal should be Priority=high, got %s", got.Priority)
	}
	if got.Reason != "VIP customer" {
		t.Errorf("unexpected reason: %q", got.Reason)
	}
}

func TestDecidePriorityHighValueChurnRisk(t *testing.T) {
	u := Classify("just checking in")
	got := DecidePriority(u, false, 2500, 0.6, nil)
	if got.Priority != models.PriorityHigh {
		t.Fatalf("high-value at-risk customer should be Priority=high, got %s", got.Priority)
	}
}

func TestDecidePriorityDefault(t *testing.T) {
	u := Classify("just checking in")
	got := DecidePriority(u, false, 100, 0.1, nil)
	if got.Priority != models.PriorityNormal {
		t.Fatalf("no signal should default to Priority=normal, got %s", got.Priority)
	}
}
