package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scriptFixture = `"""add orders table

Revision ID: 3f4e5d6c7b8a
Revises: 2b6d8e9f0a1c
Create Date: 2024-05-11 09:13:27.102938

"""

revision = '3f4e5d6c7b8a'
down_revision = '2b6d8e9f0a1c'
branch_labels = None
depends_on = None
`

func TestApplyReparent(t *testing.T) {
	plan := NewPlan("3f4e5d6c7b8a", "1a2b3c4d5e6f")

	out, err := plan.Apply(scriptFixture)
	require.NoError(t, err)

	assert.Contains(t, out, "Revises: 1a2b3c4d5e6f\n")
	assert.Contains(t, out, "down_revision = '1a2b3c4d5e6f'\n")
	assert.NotContains(t, out, "2b6d8e9f0a1c")

	// Everything outside the two locations is untouched.
	assert.Contains(t, out, "revision = '3f4e5d6c7b8a'\n")
	assert.Contains(t, out, "Revision ID: 3f4e5d6c7b8a")
	assert.Contains(t, out, "branch_labels = None\n")
}

func TestApplyReparentToBase(t *testing.T) {
	plan := NewPlan("3f4e5d6c7b8a", Base)

	out, err := plan.Apply(scriptFixture)
	require.NoError(t, err)

	assert.Contains(t, out, "Revises:\n")
	assert.Contains(t, out, "down_revision = None\n")
	assert.NotContains(t, out, "2b6d8e9f0a1c", "no identifier may be substituted for the root form")
}

func TestApplyAnnotatedAssignment(t *testing.T) {
	src := `"""init

Revises:
"""

down_revision: str | None = None
`
	plan := NewPlan("1a2b3c4d5e6f", "deadbeef1234")

	out, err := plan.Apply(src)
	require.NoError(t, err)
	assert.Contains(t, out, "down_revision: str | None = 'deadbeef1234'\n")
	assert.Contains(t, out, "Revises: deadbeef1234\n")
}

func TestApplyRootToRootIsStable(t *testing.T) {
	src := `"""init

Revises:
"""

down_revision = None
`
	plan := NewPlan("1a2b3c4d5e6f", Base)

	out, err := plan.Apply(src)
	require.NoError(t, err)
	assert.Equal(t, src, out, "re-rooting a root must change nothing")
}

func TestApplyMissingLocationRefused(t *testing.T) {
	plan := NewPlan("3f4e5d6c7b8a", "1a2b3c4d5e6f")

	_, err := plan.Apply("print('not a migration script')\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "3f4e5d6c7b8a")
}

func TestApplyMissingDownRevisionRefused(t *testing.T) {
	plan := NewPlan("3f4e5d6c7b8a", "1a2b3c4d5e6f")

	_, err := plan.Apply("\"\"\"msg\n\nRevises: 2b6d8e9f0a1c\n\"\"\"\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down_revision")
}
