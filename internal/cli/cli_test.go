package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vk/emigrid/internal/app"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name           string
		args           []string
		expectExit     bool
		expectErr      bool
		expectedConfig *app.Config
		checkOutput    func(t *testing.T, output string)
	}{
		{
			name: "Happy path with all flags",
			args: []string{
				"--config", "/etc/emigrid/settings.hcl",
				"--base-path=/data",
				"--regionmapping=iso3_to_r10",
				"--log-level=debug",
				"--log-format=text",
				"--workers=4",
			},
			expectedConfig: &app.Config{
				ConfigPath:    "/etc/emigrid/settings.hcl",
				BasePath:      "/data",
				RegionMapping: "iso3_to_r10",
				LogFormat:     "text",
				LogLevel:      "debug",
				Workers:       4,
			},
		},
		{
			name: "Positional config path and defaults",
			args: []string{"/positional/settings.hcl"},
			expectedConfig: &app.Config{
				ConfigPath: "/positional/settings.hcl",
				LogFormat:  "text",
				LogLevel:   "info",
			},
		},
		{
			name:       "No config path prints usage and exits",
			args:       []string{"--log-level=debug"},
			expectExit: true,
			checkOutput: func(t *testing.T, output string) {
				require.Contains(t, output, "Usage:")
				require.Contains(t, output, "CONFIG_PATH")
			},
		},
		{
			name:       "Help flag exits cleanly",
			args:       []string{"--help"},
			expectExit: true,
			checkOutput: func(t *testing.T, output string) {
				require.Contains(t, output, "Usage:")
			},
		},
		{
			name:      "Invalid log format",
			args:      []string{"--log-format=xml", "settings.hcl"},
			expectErr: true,
		},
		{
			name:      "Invalid log level",
			args:      []string{"--log-level=loud", "settings.hcl"},
			expectErr: true,
		},
		{
			name:      "Unknown flag",
			args:      []string{"--frobnicate", "settings.hcl"},
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var output bytes.Buffer
			cfg, exit, err := Parse(tc.args, &output)

			if tc.expectErr {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				require.Equal(t, 2, exitErr.Code)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectExit, exit)

			if tc.expectedConfig != nil {
				if diff := cmp.Diff(tc.expectedConfig, cfg); diff != "" {
					t.Errorf("config mismatch (-want +got):\n%s", diff)
				}
			}
			if tc.checkOutput != nil {
				tc.checkOutput(t, output.String())
			}
		})
	}
}

func TestExitErrorMessage(t *testing.T) {
	t.Parallel()
	err := &ExitError{Code: 2, Message: "bad flag"}
	require.Equal(t, "bad flag", err.Error())
}
