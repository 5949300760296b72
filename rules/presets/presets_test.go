package presets_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/rules/presets"
)

func TestPresets_AllBundledPresetsParse(t *testing.T) {
	services := []string{presets.ServiceFirestore, presets.ServiceStorage}
	for _, svc := range services {
		for _, name := range presets.Names() {
			file, err := presets.Load(svc, name)
			require.NoErrorf(t, err, "service=%s preset=%s", svc, name)
			require.NotNil(t, file)
			require.Len(t, file.Services, 1)
		}
	}
}

func TestPresets_UnknownPresetErrors(t *testing.T) {
	_, err := presets.Load(presets.ServiceFirestore, presets.Name("no-such-preset"))
	require.Error(t, err)
}
