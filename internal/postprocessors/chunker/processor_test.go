package chunker

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/custodia-labs/fiches/internal/core/domain"
	"github.com/custodia-labs/fiches/internal/core/ports/driven"
)

func texts(fragments []domain.Fragment) []string {
	out := make([]string, len(fragments))
	for i, f := range fragments {
		out[i] = f.Text
	}
	return out
}

// sentence builds a sentence of n words.
func sentence(word string, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = word
	}
	return strings.Join(words, " ") + "."
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		if p.chunkSize != DefaultChunkSize {
			t.Errorf("expected chunkSize %d, got %d", DefaultChunkSize, p.chunkSize)
		}
		if p.overlap != DefaultChunkOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultChunkOverlap, p.overlap)
		}
		if p.minWords != DefaultMinWords {
			t.Errorf("expected minWords %d, got %d", DefaultMinWords, p.minWords)
		}
	})

	t.Run("overlap reaching chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		if p.overlap >= p.chunkSize {
			t.Error("overlap should be reduced when it reaches chunk size")
		}
	})

	t.Run("min words above chunk size", func(t *testing.T) {
		p := New(WithChunkSize(10), WithOverlap(2), WithMinWords(50))
		if p.minWords != 10 {
			t.Errorf("expected minWords capped to 10, got %d", p.minWords)
		}
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1), WithMinWords(-1))
		if p.chunkSize != DefaultChunkSize || p.overlap != DefaultChunkOverlap || p.minWords != DefaultMinWords {
			t.Errorf("expected defaults, got %+v", p)
		}
	})
}

func TestProcessor_Name(t *testing.T) {
	if New().Name() != "chunker" {
		t.Errorf("expected name 'chunker', got %q", New().Name())
	}
}

func TestChunk_OverlapByOneSentence(t *testing.T) {
	p := New(WithChunkSize(2), WithOverlap(1), WithMinWords(0), WithMinSentenceChars(0))

	got := texts(p.Chunk("doc", "A. B. C. D. E."))
	want := []string{"A. B.", "B. C.", "C. D.", "D. E."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	p := New()
	for _, input := range []string{"", "   ", "\n\f\n", "\t\n\n"} {
		if got := p.Chunk("doc", input); len(got) != 0 {
			t.Errorf("expected no fragments for %q, got %d", input, len(got))
		}
	}
}

func TestChunk_LoneShortFragmentEmitted(t *testing.T) {
	p := New()
	got := p.Chunk("doc", "Conserver au frais et au sec.")
	if len(got) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(got))
	}
	if got[0].Text != "Conserver au frais et au sec." {
		t.Errorf("unexpected text %q", got[0].Text)
	}
}

func TestChunk_IndexesContiguous(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(5), WithMinWords(5))
	var parts []string
	for i := 0; i < 30; i++ {
		parts = append(parts, sentence("farine", 6))
	}

	fragments := p.Chunk("doc-1", strings.Join(parts, " "))
	if len(fragments) < 2 {
		t.Fatalf("expected several fragments, got %d", len(fragments))
	}
	for i, f := range fragments {
		if f.Index != i {
			t.Errorf("fragment %d has index %d", i, f.Index)
		}
		if f.DocumentID != "doc-1" {
			t.Errorf("fragment %d has document %q", i, f.DocumentID)
		}
	}
}

// sentences builds one sentence per word count.
func sentences(word string, counts ...int) string {
	parts := make([]string, len(counts))
	for i, n := range counts {
		parts[i] = sentence(word, n)
	}
	return strings.Join(parts, " ")
}

func wordCounts(fragments []domain.Fragment) []int {
	out := make([]int, len(fragments))
	for i, f := range fragments {
		out[i] = f.WordCount
	}
	return out
}

func TestChunk_Bounds(t *testing.T) {
	t.Run("uniform sentences", func(t *testing.T) {
		const w, o, m = 25, 8, 10
		p := New(WithChunkSize(w), WithOverlap(o), WithMinWords(m), WithMinSentenceChars(0))

		var parts []string
		for i := 0; i < 40; i++ {
			parts = append(parts, sentence("levure", 3+i%7))
		}
		fragments := p.Chunk("doc", strings.Join(parts, " "))

		for i, f := range fragments {
			last := i == len(fragments)-1
			if f.WordCount > w && !f.Oversized && !last {
				t.Errorf("fragment %d has %d words, above window %d", i, f.WordCount, w)
			}
			if f.WordCount < m && len(fragments) > 1 {
				t.Errorf("fragment %d has %d words, below minimum %d", i, f.WordCount, m)
			}
		}
	})

	t.Run("short sentence before oversized one", func(t *testing.T) {
		p := New(WithChunkSize(300), WithOverlap(50), WithMinWords(30), WithMinSentenceChars(0))

		fragments := p.Chunk("doc", sentences("gluten", 295, 10, 320, 200))
		if got, want := wordCounts(fragments), []int{295, 330, 200}; !reflect.DeepEqual(got, want) {
			t.Fatalf("expected word counts %v, got %v", want, got)
		}
		if !fragments[1].Oversized || fragments[1].Sentences != 2 {
			t.Errorf("expected short window folded into the oversized one, got %+v", fragments[1])
		}
	})

	t.Run("short window takes the smaller merge", func(t *testing.T) {
		p := New(WithChunkSize(20), WithOverlap(5), WithMinWords(8), WithMinSentenceChars(0))

		fragments := p.Chunk("doc", sentences("sel", 7, 19, 7, 19))
		if got, want := wordCounts(fragments), []int{26, 26}; !reflect.DeepEqual(got, want) {
			t.Errorf("expected word counts %v, got %v", want, got)
		}
	})

	t.Run("no fragment under minimum", func(t *testing.T) {
		const w, o, m = 20, 5, 8
		p := New(WithChunkSize(w), WithOverlap(o), WithMinWords(m), WithMinSentenceChars(0))

		seed := uint32(7)
		next := func(n int) int {
			seed = seed*1664525 + 1013904223
			return int(seed>>16) % n
		}
		for run := 0; run < 500; run++ {
			counts := make([]int, 2+next(10))
			for i := range counts {
				counts[i] = 1 + next(2*w)
			}

			fragments := p.Chunk("doc", sentences("mot", counts...))
			for i, f := range fragments {
				if f.Index != i {
					t.Fatalf("%v: fragment %d has index %d", counts, i, f.Index)
				}
				if len(fragments) > 1 && f.WordCount < m {
					t.Fatalf("%v: fragment %d has %d words, below minimum %d", counts, i, f.WordCount, m)
				}
			}
		}
	})
}

func TestChunk_CoversEverySentence(t *testing.T) {
	p := New(WithChunkSize(15), WithOverlap(4), WithMinWords(3), WithMinSentenceChars(0))
	input := "Le gluten donne de la force. L'acide ascorbique renforce le réseau. " +
		"La xylanase assouplit la pâte! Faut-il ajouter de la lécithine? " +
		"Dose recommandée : 0,2 %; au-delà la mie devient collante.\n\n" +
		"Nouvelle section sur le stockage. Conserver à moins de 25 °C."

	sentences := SplitSentences(input, 0)
	joined := strings.Join(texts(p.Chunk("doc", input)), "\n")
	for _, s := range sentences {
		if !strings.Contains(joined, s) {
			t.Errorf("sentence %q missing from fragments", s)
		}
	}
}

func TestChunk_OversizedSentenceStandsAlone(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3), WithMinWords(0), WithMinSentenceChars(0))
	long := sentence("amylase", 25)
	input := sentence("avant", 4) + " " + long + " " + sentence("après", 4)

	fragments := p.Chunk("doc", input)
	var oversized []domain.Fragment
	for _, f := range fragments {
		if f.Oversized {
			oversized = append(oversized, f)
		}
	}
	if len(oversized) != 1 {
		t.Fatalf("expected 1 oversized fragment, got %d", len(oversized))
	}
	if oversized[0].Text != long || oversized[0].Sentences != 1 {
		t.Errorf("oversized fragment should hold only the long sentence, got %q", oversized[0].Text)
	}
}

func TestChunk_ShortFinalWindowMerged(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0), WithMinWords(5), WithMinSentenceChars(0))
	input := sentence("eau", 5) + " " + sentence("sel", 5) + " " + sentence("fin", 2)

	fragments := p.Chunk("doc", input)
	if len(fragments) != 1 {
		t.Fatalf("expected short tail merged into one fragment, got %q", texts(fragments))
	}
	if fragments[0].WordCount != 12 {
		t.Errorf("expected 12 words, got %d", fragments[0].WordCount)
	}
}

func TestChunk_OversizedFlagSurvivesMerge(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(3), WithMinWords(5), WithMinSentenceChars(0))

	fragments := p.Chunk("doc", sentences("amylase", 25, 2))
	if len(fragments) != 1 {
		t.Fatalf("expected short tail merged into one fragment, got %q", texts(fragments))
	}
	if f := fragments[0]; f.WordCount != 27 || f.Sentences != 2 || !f.Oversized {
		t.Errorf("expected an oversized 27-word fragment of 2 sentences, got %+v", f)
	}
}

func TestChunk_SectionsNeverMix(t *testing.T) {
	p := New(WithChunkSize(300), WithOverlap(50), WithMinWords(10), WithMinSentenceChars(0))
	input := "Dosages Recommandés\n" + sentences("farine", 12, 12) +
		"\n\nStockage et Sécurité\n" + sentences("humidité", 12, 12)

	fragments := p.Chunk("doc", input)
	if len(fragments) != 2 {
		t.Fatalf("expected one fragment per section, got %q", texts(fragments))
	}
	if !strings.HasPrefix(fragments[0].Text, "Dosages Recommandés") || strings.Contains(fragments[0].Text, "humidité") {
		t.Errorf("first fragment mixes sections: %q", fragments[0].Text)
	}
	if !strings.HasPrefix(fragments[1].Text, "Stockage et Sécurité") || strings.Contains(fragments[1].Text, "farine") {
		t.Errorf("second fragment mixes sections: %q", fragments[1].Text)
	}
	if fragments[1].Index != 1 {
		t.Errorf("expected indexes to continue across sections, got %d", fragments[1].Index)
	}
}

func TestChunk_WindowsStopAtSectionBoundary(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(5), WithMinWords(5), WithMinSentenceChars(0))
	input := "Mode d'Emploi\n" + sentences("pétrir", 9, 9, 9) +
		"\n\nConditionnement\n" + sentences("sac", 9, 9, 9)

	for i, f := range p.Chunk("doc", input) {
		if strings.Contains(f.Text, "pétrir") && strings.Contains(f.Text, "sac") {
			t.Errorf("fragment %d spans two sections: %q", i, f.Text)
		}
	}
}

func TestChunk_ShortSectionJoinsNext(t *testing.T) {
	p := New(WithChunkSize(300), WithOverlap(50), WithMinWords(10), WithMinSentenceChars(0))
	input := "Résumé Général\nCourt.\nConditionnement\n" + sentences("sac", 15)

	fragments := p.Chunk("doc", input)
	if len(fragments) != 1 {
		t.Fatalf("expected the short section merged forward, got %q", texts(fragments))
	}
	if !strings.HasPrefix(fragments[0].Text, "Résumé Général Court.") {
		t.Errorf("unexpected text %q", fragments[0].Text)
	}
}

func TestChunk_SectionsDisabled(t *testing.T) {
	p := New(WithChunkSize(300), WithMinWords(10), WithMinSentenceChars(0), WithSectionPattern(nil))
	input := "Dosages Recommandés\n" + sentences("farine", 12) +
		"\n\nStockage et Sécurité\n" + sentences("humidité", 12)

	if fragments := p.Chunk("doc", input); len(fragments) != 1 {
		t.Errorf("expected a single fragment, got %q", texts(fragments))
	}
}

func TestChunk_Deterministic(t *testing.T) {
	p := New(WithChunkSize(12), WithOverlap(4), WithMinWords(3))
	input := strings.Repeat("La pâte repose trente minutes avant façonnage. ", 20)

	first := p.Chunk("doc", input)
	second := p.Chunk("doc", input)
	if !reflect.DeepEqual(first, second) {
		t.Error("chunking the same input twice should give identical fragments")
	}
}

func TestProcess_UsesPagesWhenTextEmpty(t *testing.T) {
	p := New(WithMinWords(0))
	doc := &driven.ExtractedDocument{
		Document: domain.Document{ID: "doc"},
		Pages: []domain.PageExtractionResult{
			{Page: 1, Text: "Première page du document technique."},
			{Page: 2, Text: "Seconde page avec le dosage conseillé."},
		},
	}

	fragments, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fragments) != 1 {
		t.Fatalf("expected 1 fragment, got %d", len(fragments))
	}
	if fragments[0].Sentences != 2 {
		t.Errorf("expected page break to split sentences, got %d sentences", fragments[0].Sentences)
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Process(ctx, &driven.ExtractedDocument{Text: "Texte."}, nil)
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		minChars int
		want     []string
	}{
		{
			name:  "terminators",
			input: "Pétrir lentement. Ajouter le sel! Trop salé? Non; parfait.",
			want:  []string{"Pétrir lentement.", "Ajouter le sel!", "Trop salé?", "Non;", "parfait."},
		},
		{
			name:  "decimal points stay inside",
			input: "Dosage 1.5 g par kg. Suite.",
			want:  []string{"Dosage 1.5 g par kg.", "Suite."},
		},
		{
			name:  "paragraphs and page breaks",
			input: "Titre de section\n\nCorps du\ntexte\n\f\nPage suivante",
			want:  []string{"Titre de section", "Corps du texte", "Page suivante"},
		},
		{
			name:     "short sentences merge forward",
			input:    "Note. Le dosage maximal est de 40 ppm.",
			minChars: 20,
			want:     []string{"Note. Le dosage maximal est de 40 ppm."},
		},
		{
			name:     "short tail merges backward",
			input:    "Le dosage maximal est de 40 ppm. Fin.",
			minChars: 20,
			want:     []string{"Le dosage maximal est de 40 ppm. Fin."},
		},
		{
			name:     "only short sentence kept",
			input:    "Fin.",
			minChars: 20,
			want:     []string{"Fin."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.input, tt.minChars)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSplitSections(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "no header",
			input: "Texte sans titre.\nVoir le Stockage et Sécurité.",
			want:  []string{"Texte sans titre.\nVoir le Stockage et Sécurité."},
		},
		{
			name:  "leading text and headers",
			input: "Intro du produit.\nRésumé Général\nTexte.\n  technical data sheet\nValeurs.",
			want: []string{
				"Intro du produit.\n",
				"Résumé Général\nTexte.\n",
				"  technical data sheet\nValeurs.",
			},
		},
		{
			name:  "header at start",
			input: "Packaging\nSacs de 25 kg.",
			want:  []string{"Packaging\nSacs de 25 kg."},
		},
		{
			name:  "blank",
			input: " \n\f\n",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSections(tt.input, DefaultSectionPattern)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCompileSectionHeaders(t *testing.T) {
	re, err := CompileSectionHeaders([]string{"Additifs", "Allergènes.*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := SplitSections("Intro.\nALLERGÈNES : gluten\nBlé.", re); len(got) != 2 {
		t.Errorf("expected 2 sections, got %q", got)
	}

	if _, err := CompileSectionHeaders([]string{"Dosage("}); err == nil {
		t.Error("expected error for invalid pattern")
	}
	if re, err := CompileSectionHeaders(nil); re != nil || err != nil {
		t.Errorf("expected nil pattern for no headers, got %v, %v", re, err)
	}
}
