//go:build linux

package process_manage_linux

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseStat(t *testing.T) {
	for _, tc := range []struct {
		name    string
		data    string
		want    Process
		wantErr bool
	}{
		{
			name: "simple",
			data: "1234 (bash) S 1000 1234 1234 34816 5678 4194304 1000 2000 0 0 10 5 3 1 20 0 1 0 12345 8192000 512 18446744073709551615",
			want: Process{Name: "bash", State: "S", PPID: 1000, Threads: 1},
		},
		{
			name: "comm with spaces",
			data: "42 (my game server) R 7 42 42 0 -1 4194560 100 0 0 0 50 25 0 0 20 0 16 0 99 1048576 256 18446744073709551615",
			want: Process{Name: "my game server", State: "R", PPID: 7, Threads: 16},
		},
		{
			name: "comm with parens",
			data: "9 (a(b)c) Z 1 9 9 0 -1 0 0 0 0 0 0 0 0 0 20 0 2 0 5 0 0 0",
			want: Process{Name: "a(b)c", State: "Z", PPID: 1, Threads: 2},
		},
		{
			name:    "missing comm",
			data:    "1234 S 1000",
			wantErr: true,
		},
		{
			name:    "truncated fields",
			data:    "1234 (bash) S 1000 1234",
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var proc Process
			err := parseStat(tc.data, &proc)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want.Name, proc.Name)
			require.Equal(t, tc.want.State, proc.State)
			require.Equal(t, tc.want.PPID, proc.PPID)
			require.Equal(t, tc.want.Threads, proc.Threads)
		})
	}
}

func TestParseStatus(t *testing.T) {
	data := `Name:	bash
Umask:	0022
State:	S (sleeping)
Pid:	1234
VmPeak:	  230000 kB
VmSize:	  225312 kB
VmRSS:	    5432 kB
Threads:	1
`
	var proc Process
	parseStatus(data, &proc)
	require.Equal(t, int64(225312), proc.VmSize)
	require.Equal(t, int64(5432), proc.VmRSS)
}

func TestParseStatusIgnoresGarbage(t *testing.T) {
	var proc Process
	parseStatus("VmSize:\nVmRSS: notanumber kB\n", &proc)
	require.Zero(t, proc.VmSize)
	require.Zero(t, proc.VmRSS)
}

func TestGetProcessSelf(t *testing.T) {
	pm := NewProcessManager()
	proc, err := pm.GetProcess(os.Getpid())
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), proc.PID)
	require.NotEmpty(t, proc.Name)
	require.True(t, pm.ProcessExists(os.Getpid()))
}
