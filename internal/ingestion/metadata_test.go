package ingestion

import "testing"

func TestInferMetadata(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want InferredMetadata
	}{
		{
			name: "species breed doctype",
			path: "dogs/golden_retriever/health.md",
			want: InferredMetadata{Species: "dog", Breed: "golden_retriever", DocType: "health"},
		},
		{
			name: "singular species dir",
			path: "cat/siamese/care.md",
			want: InferredMetadata{Species: "cat", Breed: "siamese", DocType: "care"},
		},
		{
			name: "breed file directly under species",
			path: "cats/maine_coon.md",
			want: InferredMetadata{Species: "cat", Breed: "maine_coon", DocType: "overview"},
		},
		{
			name: "diet aliases to nutrition",
			path: "rabbits/holland_lop/diet.md",
			want: InferredMetadata{Species: "rabbit", Breed: "holland_lop", DocType: "nutrition"},
		},
		{
			name: "hyphenated breed dir normalizes",
			path: "dogs/Cavalier-King-Charles-Spaniel/grooming.md",
			want: InferredMetadata{Species: "dog", Breed: "cavalier_king_charles_spaniel", DocType: "grooming"},
		},
		{
			name: "unknown doc type stays empty",
			path: "dogs/beagle/notes.md",
			want: InferredMetadata{Species: "dog", Breed: "beagle", DocType: ""},
		},
		{
			name: "unknown layout infers nothing",
			path: "misc/scratch.md",
			want: InferredMetadata{Species: "", Breed: "misc", DocType: ""},
		},
		{
			name: "bare file",
			path: "health.md",
			want: InferredMetadata{Species: "", Breed: "", DocType: "health"},
		},
		{
			name: "windows separators",
			path: `dogs\poodle\training.md`,
			want: InferredMetadata{Species: "dog", Breed: "poodle", DocType: "training"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := InferMetadata(tc.path)
			if got != tc.want {
				t.Errorf("InferMetadata(%q) = %+v, want %+v", tc.path, got, tc.want)
			}
		})
	}
}

func TestChunkID_Deterministic(t *testing.T) {
	t.Parallel()

	a := ChunkID("dogs/beagle/health.md", "content", 0)
	b := ChunkID("dogs/beagle/health.md", "content", 0)
	if a != b {
		t.Errorf("ChunkID is not deterministic: %s vs %s", a, b)
	}

	if ChunkID("dogs/beagle/health.md", "content", 1) == a {
		t.Error("different chunk index must produce a different ID")
	}
	if ChunkID("dogs/beagle/health.md", "other content", 0) == a {
		t.Error("different content must produce a different ID")
	}
	if ChunkID("cats/siamese.md", "content", 0) == a {
		t.Error("different source must produce a different ID")
	}
}
