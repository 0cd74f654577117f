package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	assert.Equal(t, "consent_42.pdf", Filename("42"))
	assert.Equal(t, "consent_.pdf", Filename(""))
	assert.Equal(t, "consent_a-b_c.1.pdf", Filename("a-b_c.1"))
	assert.Equal(t, "consent_x_y__z_.pdf", Filename("x/y\"\nz;"))
	assert.Equal(t, "consent_.._.._etc_passwd.pdf", Filename("../../etc/passwd"))
	assert.Equal(t, "consent___.pdf", Filename("Ид"))
}
