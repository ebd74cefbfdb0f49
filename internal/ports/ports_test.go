package ports

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artofscripting/networkvector/internal/errors"
)

func TestCurated(t *testing.T) {
	set := Curated()

	require.NotEmpty(t, set)
	assert.True(t, slices.IsSorted(set), "curated set must be sorted")
	assert.Len(t, slices.Compact(slices.Clone(set)), len(set), "curated set must not contain duplicates")
	for _, p := range []uint16{22, 80, 135, 139, 443, 445, 3389, 8080} {
		assert.True(t, slices.Contains(set, p), "curated set should contain %d", p)
	}

	set[0] = 9
	assert.Equal(t, uint16(1), Curated()[0], "Curated must return a copy")
}

func TestAll(t *testing.T) {
	all := All()
	require.Len(t, all, 65535)
	assert.Equal(t, uint16(1), all[0])
	assert.Equal(t, uint16(65535), all[len(all)-1])
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    []uint16
		wantErr bool
	}{
		{name: "single", spec: "22", want: []uint16{22}},
		{name: "list sorted and deduplicated", spec: "443,22,80,22", want: []uint16{22, 80, 443}},
		{name: "range", spec: "8000-8003", want: []uint16{8000, 8001, 8002, 8003}},
		{name: "mixed with spaces", spec: "22 80, 100-101", want: []uint16{22, 80, 100, 101}},
		{name: "overlapping ranges", spec: "1-3,2-4", want: []uint16{1, 2, 3, 4}},
		{name: "empty", spec: "  ", wantErr: true},
		{name: "zero", spec: "0", wantErr: true},
		{name: "too large", spec: "65536", wantErr: true},
		{name: "reversed range", spec: "90-80", wantErr: true},
		{name: "garbage", spec: "ssh", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.CodePortsInvalid))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKeywords(t *testing.T) {
	all, err := Parse("ALL")
	require.NoError(t, err)
	assert.Len(t, all, 65535)

	common, err := Parse("common")
	require.NoError(t, err)
	assert.Equal(t, Curated(), common)
}

func TestBuild(t *testing.T) {
	t.Run("curated", func(t *testing.T) {
		got, err := Build(ModeCurated, nil)
		require.NoError(t, err)
		assert.Equal(t, Curated(), got)
	})

	t.Run("explicit", func(t *testing.T) {
		got, err := Build(ModeExplicit, []uint16{443, 22, 443})
		require.NoError(t, err)
		assert.Equal(t, []uint16{22, 443}, got)
	})

	t.Run("explicit requires ports", func(t *testing.T) {
		_, err := Build(ModeExplicit, nil)
		assert.Error(t, err)
	})

	t.Run("all", func(t *testing.T) {
		got, err := Build(ModeAll, nil)
		require.NoError(t, err)
		assert.Len(t, got, 65535)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := Build(Mode("udp"), nil)
		assert.True(t, errors.IsCode(err, errors.CodeValidation))
	})
}

func TestServiceTables(t *testing.T) {
	assert.Equal(t, "SSH", ServiceName(22))
	assert.Equal(t, "SMB", ServiceName(445))
	assert.Equal(t, "WinRM-S", ServiceName(5986))
	assert.Equal(t, UnknownService, ServiceName(31337))

	assert.True(t, IsRisky(3389))
	assert.False(t, IsRisky(443))

	assert.True(t, IsFileService(139))
	assert.True(t, IsFileService(2049))
	assert.False(t, IsFileService(22))

	assert.Equal(t, RiskHigh, Describe(445).Risk)
	assert.Equal(t, RiskUnknown, Describe(31337).Risk)
	assert.Contains(t, Describe(31337).Summary, "31337")
}
