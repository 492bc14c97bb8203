package config

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func staticMX(records map[string][]string) MXLookupFunc {
	return func(_ context.Context, domain string) ([]*net.MX, error) {
		hosts, ok := records[domain]
		if !ok {
			return nil, errors.New("no such host")
		}
		out := make([]*net.MX, 0, len(hosts))
		for _, h := range hosts {
			out = append(out, &net.MX{Host: h})
		}
		return out, nil
	}
}

func TestDetectService(t *testing.T) {
	resolver, err := NewAccountResolver(testConfig(), zap.NewNop())
	require.NoError(t, err)

	mx := staticMX(map[string][]string{
		"acme.com":   {"ASPMX.L.GOOGLE.COM."},
		"contoso.io": {"contoso-io.mail.protection.outlook.com."},
		"plain.org":  {"mx.plain.org."},
	})
	d := NewServiceDetector(resolver, mx)
	ctx := context.Background()

	tests := []struct {
		name        string
		address     string
		want        Service
		wantWarning bool
	}{
		{name: "configured gmail account", address: "sales@EXAMPLE.in", want: ServiceGmail},
		{name: "configured outlook account", address: "ops@fleet.cloud", want: ServiceOutlook},
		{name: "google mx", address: "info@acme.com", want: ServiceGmail, wantWarning: true},
		{name: "office365 mx", address: "info@contoso.io", want: ServiceOutlook, wantWarning: true},
		{name: "in suffix", address: "x@unknown.in", want: ServiceGmail},
		{name: "cloud suffix", address: "x@other.cloud", want: ServiceOutlook},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det, err := d.Detect(ctx, tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.want, det.Service)
			assert.Equal(t, tt.wantWarning, det.Warning != "")
		})
	}
}

func TestDetectFallbackIsFlagged(t *testing.T) {
	resolver, err := NewAccountResolver(testConfig(), zap.NewNop())
	require.NoError(t, err)
	d := NewServiceDetector(resolver, staticMX(nil))

	det, err := d.Detect(context.Background(), "someone@plain.org")
	require.NoError(t, err)
	assert.NotEmpty(t, det.Warning)
	assert.Contains(t, []Service{ServiceGmail, ServiceOutlook}, det.Service)
}

func TestDetectWithoutCredentials(t *testing.T) {
	d := NewServiceDetector(NewAccountResolverFromAccounts(), staticMX(nil))

	_, err := d.Detect(context.Background(), "someone@plain.org")
	assert.ErrorIs(t, err, ErrNoAccounts)

	_, err = d.Detect(context.Background(), "not-an-address")
	assert.Error(t, err)
}
