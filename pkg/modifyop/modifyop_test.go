package modifyop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/nimbusfs/pkg/errs"
	"github.com/nimbusfs/nimbusfs/pkg/model"
)

func TestEncodeDecodeRoundTripWrite(t *testing.T) {
	op := NewWrite("file1", model.Now(), 3, 4, 100, []byte("payload"))
	data, err := Encode(op)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindWrite, got.Kind)
	assert.Equal(t, "file1", got.ID)
	require.NotNil(t, got.Write)
	assert.Equal(t, int64(100), got.Write.Offset)
	assert.Equal(t, []byte("payload"), got.Write.Data)
}

func TestEncodeDecodeRoundTripCreateFile(t *testing.T) {
	op := NewCreateFile("parent1", model.Now(), 0, 0, "a.txt", model.RegularFile, 0644, 0)
	data, err := Encode(op)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindCreateFile, got.Kind)
	require.NotNil(t, got.CreateFile)
	assert.Equal(t, "a.txt", got.CreateFile.Name)
	assert.Equal(t, model.RegularFile, got.CreateFile.FileType)
}

func TestEncodeDecodeRoundTripSetAttributesOptionalFields(t *testing.T) {
	size := uint64(42)
	op := NewSetAttributes("f", model.Now(), 0, 0, SetAttributes{Size: &size})
	data, err := Encode(op)
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	require.NotNil(t, got.SetAttributes)
	require.NotNil(t, got.SetAttributes.Size)
	assert.Equal(t, uint64(42), *got.SetAttributes.Size)
	assert.Nil(t, got.SetAttributes.Perm)
}

func TestValidateNameRejectsDotAndDotDot(t *testing.T) {
	assert.Error(t, ValidateName("."))
	assert.Error(t, ValidateName(".."))
	assert.Error(t, ValidateName(""))
}

func TestValidateNameRejectsSlash(t *testing.T) {
	err := ValidateName("a/b")
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidUnicode))
}

func TestValidateNameRejectsNonUTF8(t *testing.T) {
	err := ValidateName(string([]byte{0xff, 0xfe}))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.InvalidUnicode))
}

func TestValidateNameAcceptsOrdinaryName(t *testing.T) {
	assert.NoError(t, ValidateName("hello.txt"))
}
