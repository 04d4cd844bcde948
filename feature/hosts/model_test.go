package hosts

import (
	"testing"

	"incus-sync/core/incus"

	"github.com/stretchr/testify/assert"
)

func TestHost_Endpoint(t *testing.T) {
	h := Host{
		Name:           "node-a",
		ConnectionType: "https",
		URL:            "https://10.0.0.1:8443",
		ClientCertPath: "/certs/client.crt",
		ClientKeyPath:  "/certs/client.key",
		CACertPath:     "/certs/ca.crt",
		VerifyTLS:      true,
		Project:        "prod",
	}

	ep := h.Endpoint()
	assert.Equal(t, incus.ConnectionHTTPS, ep.Type)
	assert.Equal(t, "node-a", ep.Name)
	assert.Equal(t, "/certs/ca.crt", ep.CACertPath)
	assert.Equal(t, "prod", ep.Project)
	assert.True(t, ep.VerifyTLS)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		host   Host
		fields []string
	}{
		{"unix minimal", Host{Name: "node-a", ConnectionType: "unix"}, nil},
		{"https complete", Host{Name: "node-a", ConnectionType: "https", URL: "https://h:8443", ClientCertPath: "/c.crt", ClientKeyPath: "/c.key"}, nil},
		{"missing name", Host{ConnectionType: "unix"}, []string{"Name"}},
		{"bad type", Host{Name: "node-a", ConnectionType: "ssh"}, []string{"ConnectionType"}},
		{"plain http", Host{Name: "node-a", ConnectionType: "https", URL: "http://h:8443", ClientCertPath: "/c.crt", ClientKeyPath: "/c.key"}, []string{"URL"}},
		{"relative cert", Host{Name: "node-a", ConnectionType: "https", URL: "https://h:8443", ClientCertPath: "c.crt", ClientKeyPath: "/c.key"}, []string{"ClientCertPath"}},
		{"relative socket", Host{Name: "node-a", ConnectionType: "unix", SocketPath: "incus.sock"}, []string{"SocketPath"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.host)
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			if assert.ErrorAs(t, err, &verr) {
				var got []string
				for _, f := range verr.Fields {
					got = append(got, f.Field)
				}
				assert.Equal(t, tt.fields, got)
			}
		})
	}
}
