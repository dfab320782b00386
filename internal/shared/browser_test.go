package shared

import "testing"

func TestBrowserCommand(t *testing.T) {
	tt := []struct {
		goos    string
		program string
		wantErr bool
	}{
		{goos: "darwin", program: "open"},
		{goos: "linux", program: "xdg-open"},
		{goos: "windows", program: "rundll32"},
		{goos: "plan9", wantErr: true},
	}

	for _, tc := range tt {
		t.Run(tc.goos, func(t *testing.T) {
			cmd, err := browserCommand(tc.goos, "http://127.0.0.1:3000")
			if (err != nil) != tc.wantErr {
				t.Fatalf("browserCommand() error = %v, wantErr %v", err, tc.wantErr)
			}
			if tc.wantErr {
				return
			}

			if cmd.Args[0] != tc.program {
				t.Errorf("expected program %s, got %s", tc.program, cmd.Args[0])
			}
			if cmd.Args[len(cmd.Args)-1] != "http://127.0.0.1:3000" {
				t.Errorf("expected url as last argument, got %v", cmd.Args)
			}
		})
	}
}
