package services

import (
	"weread-agent/internal/app/models"
)

// MergeChunk 合并规则：chunk 中出现的字段整体替换 view 中对应字段，未出现的保持不变
func MergeChunk(view models.MergedView, chunk *models.Chunk) models.MergedView {
	next := models.MergedView{
		AnswerText: view.AnswerText,
		Answered:   view.Answered,
		Citations:  copyCitations(view.Citations),
		Final:      view.Final,
	}
	if chunk == nil {
		return next
	}
	if chunk.Answer != nil {
		next.AnswerText = *chunk.Answer
		next.Answered = true
	}
	if chunk.HasCitations {
		next.Citations = copyCitations(chunk.Citations)
	}
	return next
}

// Finalize 标记结束；从未收到回答时填入 NoAnswerMarker
func Finalize(view models.MergedView) models.MergedView {
	view.Citations = copyCitations(view.Citations)
	if !view.Answered {
		view.AnswerText = models.NoAnswerMarker
	}
	view.Final = true
	return view
}

func copyCitations(src []models.Citation) []models.Citation {
	dst := make([]models.Citation, len(src))
	copy(dst, src)
	return dst
}

// Accumulator 持有单个会话的最新视图，不保留历史
type Accumulator struct {
	view   models.MergedView
	chunks int
}

func NewAccumulator() *Accumulator {
	return &Accumulator{view: models.MergedView{Citations: []models.Citation{}}}
}

// Apply 合并一个分片并返回新视图；终止分片会同时 Finalize
func (a *Accumulator) Apply(chunk *models.Chunk) models.MergedView {
	a.view = MergeChunk(a.view, chunk)
	a.chunks++
	if chunk != nil && !chunk.HasMore {
		a.view = Finalize(a.view)
	}
	return a.View()
}

// View 返回当前视图的副本
func (a *Accumulator) View() models.MergedView {
	return MergeChunk(a.view, nil)
}

func (a *Accumulator) Chunks() int {
	return a.chunks
}
