package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tbnow/screening-api/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   model.ResponseTag
	}{
		{
			name:   "clean answer is success",
			answer: "Berdasarkan gejala yang dilaporkan, risiko TB tergolong sedang.",
			want:   model.TagSuccess,
		},
		{
			name:   "empty answer is success",
			answer: "",
			want:   model.TagSuccess,
		},
		{
			name:   "service unavailable marker",
			answer: "⚠️ **Layanan AI sementara tidak tersedia**\n\nSilakan coba lagi nanti.",
			want:   model.TagServiceUnavailable,
		},
		{
			name:   "rate limit marker",
			answer: "⚠️ **Batas permintaan tercapai**\n\nTunggu beberapa menit.",
			want:   model.TagRateLimited,
		},
		{
			name:   "system error marker",
			answer: "⚠️ **Kesalahan sistem**\n\nTim kami sedang menangani masalah ini.",
			want:   model.TagSystemError,
		},
		{
			name:   "marker in the middle of the answer still matches",
			answer: "Maaf. ⚠️ **Kesalahan sistem** terjadi saat memproses.",
			want:   model.TagSystemError,
		},
		{
			name:   "bold text without the marker phrase is success",
			answer: "Perhatikan **tanda bahaya** seperti batuk berdarah.",
			want:   model.TagSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.answer)
			assert.Equal(t, tt.want, got.Tag)
			assert.Equal(t, tt.answer, got.Answer, "answer text must pass through untouched")
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// When several markers appear, the unavailable marker wins regardless
	// of position in the text.
	answer := "⚠️ **Batas permintaan tercapai**\n⚠️ **Layanan AI sementara tidak tersedia**"
	got := Classify(answer)
	assert.Equal(t, model.TagServiceUnavailable, got.Tag)

	answer = "⚠️ **Kesalahan sistem** dan juga ⚠️ **Batas permintaan tercapai**"
	got = Classify(answer)
	assert.Equal(t, model.TagRateLimited, got.Tag)
}

func TestDegradedTags(t *testing.T) {
	assert.True(t, model.TagServiceUnavailable.Degraded())
	assert.True(t, model.TagRateLimited.Degraded())
	assert.False(t, model.TagSystemError.Degraded())
	assert.False(t, model.TagSuccess.Degraded())
}
