package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalExpression(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2 + 2", 4},
		{"12 + 30", 42},
		{"10 - 4 * 2", 2},
		{"(10 - 4) * 2", 12},
		{"7 / 2", 3.5},
		{"10 % 3", 1},
		{"-5 + 3", -2},
		{"2 * -3", -6},
		{"1.5 * 4", 6},
		{"((2))", 2},
	}
	for _, c := range cases {
		got, err := evalExpression(c.expr)
		require.NoError(t, err, c.expr)
		assert.InDelta(t, c.want, got, 1e-9, c.expr)
	}
}

func TestEvalExpressionErrors(t *testing.T) {
	for _, expr := range []string{
		"",
		"   ",
		"2 +",
		"* 3",
		"(1 + 2",
		"1 / 0",
		"10 % 0",
		"two plus two",
		"2 ^ 3",
	} {
		_, err := evalExpression(expr)
		assert.Error(t, err, "expression %q should fail", expr)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "4", formatNumber(4.0))
	assert.Equal(t, "-17", formatNumber(-17.0))
	assert.Equal(t, "3.5", formatNumber(3.5))
}

func TestCalculatorTool(t *testing.T) {
	tool := &CalculatorTool{}

	result := tool.Execute(context.Background(), map[string]string{"expression": "6 * 7"})
	require.True(t, result.Success)
	assert.Equal(t, "That comes to 42.", result.Text)

	result = tool.Execute(context.Background(), map[string]string{"expression": "what"})
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Err)
}
