package redisconfig

import (
	"testing"

	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
)

func TestLagIDFromName(t *testing.T) {
	cases := []struct {
		name    string
		want    uint16
		wantErr bool
	}{
		{"PortChannel1", 1, false},
		{"PortChannel100", 100, false},
		{"Ethernet0", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := lagIDFromName(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("lagIDFromName(%q): want error, got nil", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("lagIDFromName(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("lagIDFromName(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestPortNumFromName(t *testing.T) {
	cases := []struct {
		name    string
		want    uint8
		wantErr bool
	}{
		{"Ethernet0", 0, false},
		{"Ethernet48", 48, false},
		{"PortChannel1", 0, true},
	}
	for _, c := range cases {
		got, err := portNumFromName(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("portNumFromName(%q): want error, got nil", c.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("portNumFromName(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Errorf("portNumFromName(%q) = %d, want %d", c.name, got, c.want)
		}
	}
}

func TestParseActorKeyField(t *testing.T) {
	if got := parseActorKeyField("7"); got != 7 {
		t.Errorf("parseActorKeyField(\"7\") = %d, want 7", got)
	}
	if got := parseActorKeyField(""); got != 0 {
		t.Errorf("parseActorKeyField(\"\") = %d, want 0 (malformed defaults to zero)", got)
	}
	if got := parseActorKeyField("not-a-number"); got != 0 {
		t.Errorf("parseActorKeyField(garbage) = %d, want 0", got)
	}
}

func TestParseBoolField(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"", false},
		{"garbage", false},
	}
	for _, c := range cases {
		if got := parseBoolField(c.in); got != c.want {
			t.Errorf("parseBoolField(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestSportParamsFromFields(t *testing.T) {
	h := handle.NewLAG(1)

	if _, ok := sportParamsFromFields(h, 5, map[string]string{}); ok {
		t.Error("sportParamsFromFields with no admin fields: want ok=false")
	}

	fields := map[string]string{
		"partner_system_priority": "32768",
		"partner_system_mac":      "02:00:00:00:00:01",
		"partner_key":             "9",
		"aggr_type":               "1",
	}
	params, ok := sportParamsFromFields(h, 5, fields)
	if !ok {
		t.Fatal("sportParamsFromFields with admin fields: want ok=true")
	}
	if params.PartnerSysPri != 32768 || params.PartnerKey != 9 || params.AggrType != 1 {
		t.Errorf("sportParamsFromFields: got %+v", params)
	}
	if params.Flags&aggregator.FlagPartnerSysID == 0 || params.Flags&aggregator.FlagPartnerKey == 0 {
		t.Errorf("sportParamsFromFields: flags = %08b, want both partner bits set", params.Flags)
	}
}
