package shares

import (
	"context"
	"fmt"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artofscripting/networkvector/internal/errors"
	"github.com/artofscripting/networkvector/internal/logging"
)

const smbclientOutput = "Anonymous login successful\n" +
	"\n" +
	"\tSharename       Type      Comment\n" +
	"\t---------       ----      -------\n" +
	"\tpublic          Disk      Public files\n" +
	"\tscans           Disk      Scanner drop\n" +
	"\tIPC$            IPC       IPC Service (Samba)\n" +
	"\tprint$          Disk      Printer Drivers\n" +
	"SMB1 disabled -- no workgroup available\n" +
	"\tafter           Disk      not a share\n"

const netViewOutput = `Shared resources at \\10.0.0.5

File server

Share name  Type  Used as  Comment

-------------------------------------------------------------------------------
ADMIN$      Disk           Remote Admin
C$          Disk           Default share
Finance     Disk
IPC$        IPC            Remote IPC
Users       Disk
The command completed successfully.
`

func TestParseSMBClient(t *testing.T) {
	assert.Equal(t, []string{"public", "scans"}, ParseSMBClient(smbclientOutput))
	assert.Empty(t, ParseSMBClient("session setup failed: NT_STATUS_ACCESS_DENIED\n"))
}

func TestParseNetView(t *testing.T) {
	assert.Equal(t, []string{"Finance", "Users"}, ParseNetView(netViewOutput))
	assert.Empty(t, ParseNetView(""))
}

func TestEnumerator_Commands(t *testing.T) {
	addr := netip.MustParseAddr("10.0.0.5")

	tests := []struct {
		goos   string
		output string
		name   string
		args   []string
		want   []string
	}{
		{"linux", smbclientOutput, "smbclient", []string{"-L", "10.0.0.5", "-N"}, []string{"public", "scans"}},
		{"darwin", smbclientOutput, "smbclient", []string{"-L", "10.0.0.5", "-N"}, []string{"public", "scans"}},
		{"windows", netViewOutput, "net", []string{"view", `\\10.0.0.5`, "/all"}, []string{"Finance", "Users"}},
	}

	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			var gotName string
			var gotArgs []string
			e := New(time.Second, WithGOOS(tt.goos), WithLogger(logging.NewDiscard()),
				WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
					gotName, gotArgs = name, args
					return []byte(tt.output), nil
				}))

			found, err := e.Enumerate(context.Background(), addr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, found)
			assert.Equal(t, tt.name, gotName)
			assert.Equal(t, tt.args, gotArgs)
		})
	}
}

func TestEnumerator_Failure(t *testing.T) {
	e := New(time.Second, WithGOOS("linux"), WithLogger(logging.NewDiscard()),
		WithRunner(func(context.Context, string, ...string) ([]byte, error) {
			return nil, fmt.Errorf("exec: \"smbclient\": executable file not found in $PATH")
		}))

	found, err := e.Enumerate(context.Background(), netip.MustParseAddr("10.0.0.5"))
	assert.Nil(t, found)
	assert.True(t, errors.IsCode(err, errors.CodeShareEnumFailed))
}

func TestEnumerator_Timeout(t *testing.T) {
	e := New(20*time.Millisecond, WithGOOS("linux"), WithLogger(logging.NewDiscard()),
		WithRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}))

	start := time.Now()
	_, err := e.Enumerate(context.Background(), netip.MustParseAddr("10.0.0.5"))
	assert.True(t, errors.IsCode(err, errors.CodeShareEnumFailed))
	assert.Less(t, time.Since(start), time.Second)
}
