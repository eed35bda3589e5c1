package types

import "testing"

func TestDescriptorContainerName(t *testing.T) {
	d := Descriptor("1b4e28ba-2fa1-11d2-883f-0016d3cca427")

	want := "nodegrid-1b4e28ba-2fa1-11d2-883f-0016d3cca427"
	if got := d.ContainerName(); got != want {
		t.Errorf("ContainerName() = %q, want %q", got, want)
	}
}

func TestPortBindingProto(t *testing.T) {
	tests := []struct {
		name     string
		binding  PortBinding
		expected string
	}{
		{"default is tcp", PortBinding{ContainerPort: 80, HostPort: 8080}, "tcp"},
		{"explicit tcp", PortBinding{ContainerPort: 80, HostPort: 8080, Protocol: "tcp"}, "tcp"},
		{"udp", PortBinding{ContainerPort: 19132, HostPort: 19132, Protocol: "udp"}, "udp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.binding.Proto(); got != tt.expected {
				t.Errorf("Proto() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPortBindingValidate(t *testing.T) {
	tests := []struct {
		name    string
		binding PortBinding
		wantErr bool
	}{
		{"valid", PortBinding{ContainerPort: 80, HostPort: 8080}, false},
		{"max ports", PortBinding{ContainerPort: 65535, HostPort: 65535}, false},
		{"host port zero", PortBinding{ContainerPort: 80, HostPort: 0}, true},
		{"host port too high", PortBinding{ContainerPort: 80, HostPort: 65536}, true},
		{"container port zero", PortBinding{ContainerPort: 0, HostPort: 8080}, true},
		{"negative host port", PortBinding{ContainerPort: 80, HostPort: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.binding.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
