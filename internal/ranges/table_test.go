package ranges

import (
	"testing"

	"github.com/TomasB/geoiplite/internal/ipaddr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewV4Table_CopiesInput(t *testing.T) {
	in := []Record[uint32]{{Country: "us", Start: 1, End: u32(5)}}
	table := NewV4Table(in)

	*in[0].End = 100
	in[0].Country = "xx"

	got := table.At(0)
	assert.Equal(t, "us", got.Country)
	assert.Equal(t, uint32(5), got.Last())

	*got.End = 200
	assert.Equal(t, uint32(5), table.At(0).Last())
}

func TestTable_Accessors(t *testing.T) {
	table := exampleV4()

	assert.Equal(t, ipaddr.V4, table.Family())
	assert.Equal(t, 2, table.Len())
	records := table.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "ca", records[1].Country)
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		records []Record[uint32]
		wantErr bool
	}{
		{name: "valid", records: exampleV4().Records()},
		{name: "empty"},
		{name: "adjacent singles", records: []Record[uint32]{{Country: "a", Start: 1}, {Country: "b", Start: 2}}},
		{name: "unsorted", records: []Record[uint32]{{Country: "a", Start: 10}, {Country: "b", Start: 2}}, wantErr: true},
		{name: "overlap", records: []Record[uint32]{{Country: "a", Start: 1, End: u32(10)}, {Country: "b", Start: 10}}, wantErr: true},
		{name: "end before start", records: []Record[uint32]{{Country: "a", Start: 10, End: u32(9)}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewV4Table(tt.records).Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var dfe *DataFormatError
			require.ErrorAs(t, err, &dfe)
			assert.Equal(t, ipaddr.V4, dfe.Family)
		})
	}
}

func TestTable_ValidateV6(t *testing.T) {
	ok := NewV6Table([]Record[ipaddr.Key6]{
		{Country: "jp", Start: ipaddr.Key6{}, End: k6(0, 65535)},
		{Country: "kr", Start: ipaddr.Key6{Lo: 65536}},
		{Country: "cn", Start: ipaddr.Key6{Hi: 1}, End: k6(1, 10)},
	})
	assert.NoError(t, ok.Validate())

	bad := NewV6Table([]Record[ipaddr.Key6]{
		{Country: "jp", Start: ipaddr.Key6{Hi: 1}},
		{Country: "kr", Start: ipaddr.Key6{Lo: 1}},
	})
	assert.Error(t, bad.Validate())
}
