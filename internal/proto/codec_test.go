package proto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_ProfileUnion(t *testing.T) {
	deleted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	in := &FetchProfilesResponse{Profiles: []*Profile{
		{ID: "p1", ShareCode: "abc12", DisplayName: "Partial"},
		{ID: "p2", ShareCode: "zz999", LegacyID: "H1.2", DisplayName: "Full",
			Enrichment: &Enrichment{PhotoURL: "", Biography: "bio", Version: 7}},
		{ID: "p3", ShareCode: "dd000", DeletedAt: &deleted},
	}}

	s, err := Encode(in)
	require.NoError(t, err)

	var out FetchProfilesResponse
	require.NoError(t, Decode(s, &out))
	require.Len(t, out.Profiles, 3)

	assert.Nil(t, out.Profiles[0].Enrichment, "partial profile must stay partial")
	require.NotNil(t, out.Profiles[1].Enrichment)
	assert.Equal(t, Enrichment{PhotoURL: "", Biography: "bio", Version: 7}, *out.Profiles[1].Enrichment)
	assert.Equal(t, "H1.2", out.Profiles[1].LegacyID)
	require.NotNil(t, out.Profiles[2].DeletedAt)
	assert.True(t, deleted.Equal(*out.Profiles[2].DeletedAt))
}

func TestEncodeDecode_Bytes(t *testing.T) {
	s, err := Encode(&LoginRequest{Username: "u", VerifierCandidate: []byte{0, 1, 2, 255}})
	require.NoError(t, err)

	var out LoginRequest
	require.NoError(t, Decode(s, &out))
	assert.Equal(t, []byte{0, 1, 2, 255}, out.VerifierCandidate)
}

func TestDecode_NilStructIsNoop(t *testing.T) {
	out := PingResponse{Status: "keep"}
	require.NoError(t, Decode(nil, &out))
	assert.Equal(t, "keep", out.Status)
}

func TestFullMethod(t *testing.T) {
	assert.Equal(t, "/kinlink.registry.v1.Registry/LookupProfile", FullMethod(MethodLookupProfile))
}
