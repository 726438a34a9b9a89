package inno

import (
	"testing"

	"github.com/majewsky/wininstall-analyze/model"
	"github.com/stretchr/testify/require"
)

func TestEvalArchExpressionEmptyDefaultsX86(t *testing.T) {
	positive, negated := evalArchExpression("")
	require.Equal(t, archFlagX86, positive)
	require.Zero(t, negated)
	require.Equal(t, model.ArchX86, architectureFromExpr(positive))
}

func TestEvalArchExpressionSingleIdent(t *testing.T) {
	positive, negated := evalArchExpression("arm64")
	require.Equal(t, archFlagArm64, positive)
	require.Zero(t, negated)
}

func TestEvalArchExpressionImplicitAnd(t *testing.T) {
	// juxtaposition without an explicit "and" still parses
	positive, _, ok := evalPostfix(mustPostfix(t, "x64compatible win64"))
	require.True(t, ok)
	require.Equal(t, archFlagX64|archFlagWin64, positive)
}

func TestEvalArchExpressionNot(t *testing.T) {
	positive, negated := evalArchExpression("not arm64")
	require.Zero(t, positive)
	require.Equal(t, archFlagArm64, negated)
}

func TestEvalArchExpressionOr(t *testing.T) {
	positive, _ := evalArchExpression("x64 or arm64")
	require.Equal(t, archFlagX64|archFlagArm64, positive)
}

func TestEvalArchExpressionMalformedDefaults(t *testing.T) {
	positive, negated := evalArchExpression("( x64")
	require.Equal(t, archFlagX86, positive)
	require.Zero(t, negated)
}

func TestEvalArchExpressionUnknownIdentDefaults(t *testing.T) {
	positive, negated := evalArchExpression("mips64")
	require.Equal(t, archFlagX86, positive)
	require.Zero(t, negated)
}

func mustPostfix(t *testing.T, expr string) []archToken {
	t.Helper()
	tokens := tokenizeArchExpr(expr)
	require.NotEmpty(t, tokens)
	postfix, ok := toPostfix(tokens)
	require.True(t, ok)
	return postfix
}

func TestArchitectureFromExprPriority(t *testing.T) {
	require.Equal(t, model.ArchArm64, architectureFromExpr(archFlagArm64|archFlagX64))
	require.Equal(t, model.ArchX64, architectureFromExpr(archFlagX64|archFlagX86))
	require.Equal(t, model.ArchArm, architectureFromExpr(archFlagArm32Compatible))
	require.Equal(t, model.ArchNeutral, architectureFromExpr(archFlagWin64))
}

func TestUnsupportedFromNegated(t *testing.T) {
	out := unsupportedFromNegated(archFlagX86 | archFlagArm64)
	require.True(t, out&model.UnsupportedX86 != 0)
	require.True(t, out&model.UnsupportedArm64 != 0)
	require.False(t, out&model.UnsupportedX64 != 0)
}
