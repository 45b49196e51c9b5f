package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestion_CorrectOptionID(t *testing.T) {
	// Arrange
	question := &Question{
		ID:   1,
		Text: "Что возвращает len(nil) для слайса?",
		Type: QuestionTypeMultipleChoice,
		Options: []Option{
			{ID: 10, QuestionID: 1, Text: "panic"},
			{ID: 11, QuestionID: 1, Text: "0", IsCorrect: true},
			{ID: 12, QuestionID: 1, Text: "-1"},
		},
	}

	// Act
	correctID, ok := question.CorrectOptionID()

	// Assert
	require.True(t, ok, "правильный вариант должен быть найден")
	assert.Equal(t, uint(11), correctID)
}

func TestQuestion_CorrectOptionID_NoOptions(t *testing.T) {
	// Вопрос без загруженных опций (или свободный ответ)
	question := &Question{ID: 2, Type: QuestionTypeEssay}

	_, ok := question.CorrectOptionID()
	assert.False(t, ok, "для вопроса без опций правильный вариант не определён")
}

func TestQuestion_IsValidOption(t *testing.T) {
	question := &Question{
		Options: []Option{
			{ID: 1}, {ID: 2}, {ID: 3},
		},
	}

	assert.True(t, question.IsValidOption(1))
	assert.True(t, question.IsValidOption(3))
	assert.False(t, question.IsValidOption(4), "чужой вариант должен быть невалидным")
	assert.False(t, question.IsValidOption(0))
}

func TestQuestion_TypeChecks(t *testing.T) {
	mc := &Question{Type: QuestionTypeMultipleChoice}
	essay := &Question{Type: QuestionTypeEssay}
	short := &Question{Type: QuestionTypeShortAnswer}

	assert.True(t, mc.IsMultipleChoice())
	assert.False(t, mc.IsFreeText())

	assert.True(t, essay.IsFreeText())
	assert.False(t, essay.IsMultipleChoice())

	assert.True(t, short.IsFreeText())
}
