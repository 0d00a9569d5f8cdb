package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"basis", KindBasis, false},
		{" Macro ", KindMacro, false},
		{"strategy", KindStrategy, false},
		{"strategy_design", KindStrategy, false},
		{"synthesis", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestStageOneKinds(t *testing.T) {
	kinds := StageOneKinds()
	assert.Len(t, kinds, 6)
	assert.NotContains(t, kinds, KindStrategy)
	for _, k := range kinds {
		assert.True(t, k.IsStageOne())
	}
	assert.False(t, KindStrategy.IsStageOne())

	// 返回副本，调用方修改不影响内部顺序
	kinds[0] = KindSocial
	assert.Equal(t, KindBasis, StageOneKinds()[0])
}

func TestPipelineResult_OrderAndSections(t *testing.T) {
	p := NewPipelineResult("run-1", "豆粕")
	p.Set(StageOf(KindPrice), Success("价格偏强"))
	p.Set(StageOf(KindBasis), Failure("分析失败", errors.New("boom")))
	p.Set(StageSynthesis, Success("综合"))

	assert.Equal(t, []Stage{"price", "basis", "synthesis"}, p.Keys())
	assert.Equal(t, []Stage{"basis"}, p.FailedStages())

	r, ok := p.Get("basis")
	require.True(t, ok)
	assert.Equal(t, "分析失败: boom", r.Text)

	assert.Equal(t,
		"===== PRICE ANALYSIS =====\n价格偏强\n\n===== BASIS ANALYSIS =====\n分析失败: boom\n\n===== SYNTHESIS ANALYSIS =====\n综合",
		p.Sections())
}

func TestPipelineResult_JSONKeepsOrder(t *testing.T) {
	p := NewPipelineResult("run-1", "铜")
	p.Set("social", Success("s"))
	p.Set("basis", Failure("分析失败", errors.New("rate limited")))

	data, err := json.Marshal(p.Stages)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"social":{"text":"s","failed":false},"basis":{"text":"分析失败: rate limited","failed":true,"error":"rate limited"}}`,
		string(data))
	assert.Less(t, strings.Index(string(data), `"social"`), strings.Index(string(data), `"basis"`))
}

