package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStudentID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1234567", "123456-7"},
		{"1234561234", "123456-1234"},
		{"123456", "123456"},
		{"12-3456", "123456"},
		{"123456-7890", "123456-7890"},
		{"", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StudentID(tc.in), "input %q", tc.in)
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "Juan Dela Cruz", Name("juan dela cruz"))
	assert.Equal(t, "Juan Dela Cruz", Name("Juan Dela Cruz"))
	assert.Equal(t, "Maria  Clara", Name("maria  clara"))
	assert.Equal(t, "", Name(""))
}

func TestNameMatchesStoredProfileAfterCapitalisation(t *testing.T) {
	stored := "Juan Dela Cruz"
	assert.Equal(t, stored, Name("juan dela cruz"))
}

func TestGcashNumber(t *testing.T) {
	assert.Equal(t, "09171234567", GcashNumber("0917-123-4567"))
	assert.Equal(t, "09171234567", GcashNumber("091712345678999"))
	assert.Equal(t, "", GcashNumber("abc"))
}

func TestAmount(t *testing.T) {
	assert.Equal(t, "1,500", Amount("1500"))
	assert.Equal(t, "150", Amount("150"))
	assert.Equal(t, "1,234,567", Amount("1234567"))
	assert.Equal(t, "0", Amount(""))
	assert.Equal(t, "5", Amount("0005"))
}
