package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/recipe-extractor/internal/config"
	"github.com/spherical/recipe-extractor/internal/domain"
	"github.com/spherical/recipe-extractor/internal/observability"
)

type call struct {
	cfg    domain.StageConfig
	prompt string
	images []string
}

// fakeInvoker serves canned responses keyed by prompt.
type fakeInvoker struct {
	responses map[string]string
	errors    map[string]error
	calls     []call
}

func (f *fakeInvoker) Complete(ctx context.Context, cfg domain.StageConfig, prompt string, images []string) (string, error) {
	f.calls = append(f.calls, call{cfg: cfg, prompt: prompt, images: images})
	if err := f.errors[prompt]; err != nil {
		return "", err
	}
	return f.responses[prompt], nil
}

// writePage writes a real 200x200 JPEG so crop operations work against it.
func writePage(t *testing.T, dir, name string) string {
	t.Helper()
	img := imaging.New(200, 200, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func testConfig() *config.Config {
	return &config.Config{
		Endpoint:   "https://test.example/v1/chat/completions",
		Credential: "test-key",
		Model:      "test-model",
		MaxStage:   config.StageCount,
	}
}

const titleResponse = `Here is the extracted data:
{"name": "Chicken Soup", "description": "A hearty soup.", "category": "dinner", "tags": ["soup", "comfort"]}`

const regionResponse = `{"ingredients": {"top": 10, "left": 10, "bottom": 120, "right": 160},
"instructions": {"top": 130, "left": 10, "bottom": 190, "right": 160}}`

const instructionsResponse = "Chop the onion.\n\n  Simmer for 20 minutes.  \nServe hot.\n"

const ingredientsResponse = "```json\n" +
	`[{"name": "chicken stock", "quantity": "1/2", "unit": "l", "optional": false},
{"name": "cucumber", "quantity": 1, "unit": "cucumber", "optional": false},
{"name": "paprika", "quantity": 10, "unit": "g", "optional": true},
{"name": "", "quantity": "", "unit": ""}]` + "\n```"

func TestTitleStage_RenamesSinglePage(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan001.pdf")
	page := writePage(t, dir, "scan001.jpg")

	invoker := &fakeInvoker{responses: map[string]string{titlePrompt: titleResponse}}
	stage := &TitleStage{invoker: invoker, cfg: testConfig().Stage(1), log: observability.Nop()}

	st, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	require.NoError(t, err)

	assert.Equal(t, "Chicken Soup", st.Title)
	assert.Equal(t, "A hearty soup.", st.Description)
	assert.Equal(t, domain.CategoryDinner, st.Category)
	assert.Equal(t, []string{"soup", "comfort"}, st.Tags)
	assert.Equal(t, "chicken_soup", st.Slug)

	assert.Equal(t, filepath.Join(dir, "chicken_soup.pdf"), st.Document)
	require.Len(t, st.Images, 1)
	assert.Equal(t, filepath.Join(dir, "chicken_soup.jpg"), st.Images[0].ImagePath)

	assert.FileExists(t, filepath.Join(dir, "chicken_soup.pdf"))
	assert.FileExists(t, filepath.Join(dir, "chicken_soup.jpg"))
	assert.NoFileExists(t, doc)
	assert.NoFileExists(t, page)
}

func TestTitleStage_RenamesMultiPage(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan002.pdf")
	page1 := writePage(t, dir, "scan002_page1.jpg")
	page2 := writePage(t, dir, "scan002_page2.jpg")

	invoker := &fakeInvoker{responses: map[string]string{titlePrompt: titleResponse}}
	stage := &TitleStage{invoker: invoker, cfg: testConfig().Stage(1), log: observability.Nop()}

	st, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{
		{PageNumber: 1, ImagePath: page1},
		{PageNumber: 2, ImagePath: page2},
	}))
	require.NoError(t, err)

	require.Len(t, st.Images, 2)
	assert.Equal(t, filepath.Join(dir, "chicken_soup_page1.jpg"), st.Images[0].ImagePath)
	assert.Equal(t, filepath.Join(dir, "chicken_soup_page2.jpg"), st.Images[1].ImagePath)
	assert.FileExists(t, filepath.Join(dir, "chicken_soup_page1.jpg"))
	assert.FileExists(t, filepath.Join(dir, "chicken_soup_page2.jpg"))
	assert.NoFileExists(t, page1)
	assert.NoFileExists(t, page2)
}

func TestTitleStage_SoftFailureKeepsOriginalName(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan003.pdf")
	page := writePage(t, dir, "scan003.jpg")

	invoker := &fakeInvoker{responses: map[string]string{titlePrompt: "I cannot read this card, sorry."}}
	stage := &TitleStage{invoker: invoker, cfg: testConfig().Stage(1), log: observability.Nop()}

	st, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	require.NoError(t, err)

	assert.Equal(t, "scan003", st.Title)
	assert.Equal(t, domain.CategoryDinner, st.Category)
	assert.Equal(t, "", st.Description)
	assert.Empty(t, st.Tags)
	assert.Empty(t, st.Slug)

	// No rename happened.
	assert.FileExists(t, doc)
	assert.FileExists(t, page)
}

func TestTitleStage_ModelCallFailureIsFatal(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan004.pdf")
	page := writePage(t, dir, "scan004.jpg")

	invoker := &fakeInvoker{errors: map[string]error{titlePrompt: errors.New("connection refused")}}
	stage := &TitleStage{invoker: invoker, cfg: testConfig().Stage(1), log: observability.Nop()}

	_, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	assert.Error(t, err)
}

func TestRegionStage_CropsBothRegions(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "soup.pdf")
	page1 := writePage(t, dir, "soup_page1.jpg")
	page2 := writePage(t, dir, "soup_page2.jpg")

	invoker := &fakeInvoker{responses: map[string]string{regionPrompt: regionResponse}}
	stage := &RegionStage{invoker: invoker, cfg: testConfig().Stage(2), log: observability.Nop()}

	st, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{
		{PageNumber: 1, ImagePath: page1},
		{PageNumber: 2, ImagePath: page2},
	}))
	require.NoError(t, err)

	// Detection runs on the second page.
	require.Len(t, invoker.calls, 1)
	assert.Equal(t, []string{page2}, invoker.calls[0].images)

	assert.Equal(t, filepath.Join(dir, "soup_ingredients.jpg"), st.IngredientsCrop)
	assert.Equal(t, filepath.Join(dir, "soup_instructions.jpg"), st.InstructionsCrop)
	assert.FileExists(t, st.IngredientsCrop)
	assert.FileExists(t, st.InstructionsCrop)

	crop, err := imaging.Open(st.IngredientsCrop)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 150, 110), crop.Bounds())
}

func TestRegionStage_InvalidBoxIsFatal(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "soup.pdf")
	page := writePage(t, dir, "soup.jpg")

	bad := `{"ingredients": {"top": 10, "left": 160, "bottom": 120, "right": 10},
"instructions": {"top": 130, "left": 10, "bottom": 190, "right": 160}}`
	invoker := &fakeInvoker{responses: map[string]string{regionPrompt: bad}}
	stage := &RegionStage{invoker: invoker, cfg: testConfig().Stage(2), log: observability.Nop()}

	_, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	require.Error(t, err)

	// Rejected before any crop was attempted.
	assert.NoFileExists(t, filepath.Join(dir, "soup_ingredients.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "soup_instructions.jpg"))
}

func TestRegionStage_UnparseableIsFatal(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "soup.pdf")
	page := writePage(t, dir, "soup.jpg")

	invoker := &fakeInvoker{responses: map[string]string{regionPrompt: "no boxes found"}}
	stage := &RegionStage{invoker: invoker, cfg: testConfig().Stage(2), log: observability.Nop()}

	_, err := stage.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	assert.Error(t, err)
}

func TestInstructionStage_SplitsLines(t *testing.T) {
	invoker := &fakeInvoker{responses: map[string]string{instructionsPrompt: instructionsResponse}}
	stage := &InstructionStage{invoker: invoker, cfg: testConfig().Stage(3), log: observability.Nop()}

	st := NewState("/tmp/soup.pdf", []domain.PageImage{{PageNumber: 1, ImagePath: "/tmp/soup.jpg"}})
	st.InstructionsCrop = "/tmp/soup_instructions.jpg"

	out, err := stage.Run(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chop the onion.", "Simmer for 20 minutes.", "Serve hot."}, out.Instructions)

	// Reads the crop, not the full page.
	require.Len(t, invoker.calls, 1)
	assert.Equal(t, []string{"/tmp/soup_instructions.jpg"}, invoker.calls[0].images)
}

func TestInstructionStage_EmptyIsSoftFailure(t *testing.T) {
	invoker := &fakeInvoker{responses: map[string]string{instructionsPrompt: "\n  \n"}}
	stage := &InstructionStage{invoker: invoker, cfg: testConfig().Stage(3), log: observability.Nop()}

	out, err := stage.Run(context.Background(), NewState("/tmp/x.pdf", []domain.PageImage{{PageNumber: 1, ImagePath: "/tmp/x.jpg"}}))
	require.NoError(t, err)
	assert.Empty(t, out.Instructions)
	assert.NotNil(t, out.Instructions)
}

func TestIngredientStage_NormalizesUnitsAndPreservesQuantities(t *testing.T) {
	invoker := &fakeInvoker{responses: map[string]string{ingredientsPrompt: ingredientsResponse}}
	stage := &IngredientStage{invoker: invoker, cfg: testConfig().Stage(4), log: observability.Nop()}

	out, err := stage.Run(context.Background(), NewState("/tmp/x.pdf", []domain.PageImage{{PageNumber: 1, ImagePath: "/tmp/x.jpg"}}))
	require.NoError(t, err)

	require.Len(t, out.Ingredients, 3) // the nameless entry is dropped
	assert.Equal(t, domain.IngredientLine{Name: "chicken stock", Quantity: "1/2", Unit: "l"}, out.Ingredients[0])
	assert.Equal(t, domain.IngredientLine{Name: "cucumber", Quantity: "1", Unit: "piece"}, out.Ingredients[1])
	assert.Equal(t, domain.IngredientLine{Name: "paprika", Quantity: "10", Unit: "g", Optional: true}, out.Ingredients[2])
}

func TestIngredientStage_MalformedIsSoftFailure(t *testing.T) {
	invoker := &fakeInvoker{responses: map[string]string{ingredientsPrompt: "the card is unreadable"}}
	stage := &IngredientStage{invoker: invoker, cfg: testConfig().Stage(4), log: observability.Nop()}

	out, err := stage.Run(context.Background(), NewState("/tmp/x.pdf", []domain.PageImage{{PageNumber: 1, ImagePath: "/tmp/x.jpg"}}))
	require.NoError(t, err)
	assert.Empty(t, out.Ingredients)
	assert.NotNil(t, out.Ingredients)
}

func TestPipeline_EndToEndTwoPages(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan010.pdf")
	page1 := writePage(t, dir, "scan010_page1.jpg")
	page2 := writePage(t, dir, "scan010_page2.jpg")

	invoker := &fakeInvoker{responses: map[string]string{
		titlePrompt:        titleResponse,
		regionPrompt:       regionResponse,
		instructionsPrompt: instructionsResponse,
		ingredientsPrompt:  ingredientsResponse,
	}}

	pipe := New(testConfig(), invoker, observability.Nop())
	completed, st, err := pipe.Run(context.Background(), NewState(doc, []domain.PageImage{
		{PageNumber: 1, ImagePath: page1},
		{PageNumber: 2, ImagePath: page2},
	}))
	require.NoError(t, err)
	require.True(t, completed)
	require.NotNil(t, st.Record)

	record := st.Record
	assert.Equal(t, "Chicken Soup", record.Name)
	assert.Equal(t, domain.CategoryDinner, record.Category)
	assert.Equal(t, domain.DefaultServings, record.Servings)
	assert.Equal(t, domain.DefaultDuration, record.DefaultDuration)
	assert.Equal(t, []domain.ImageRef{
		{Src: "./chicken_soup_page1.jpg"},
		{Src: "./chicken_soup_page2.jpg"},
	}, record.Images)
	assert.Len(t, record.Instructions, 3)
	assert.Len(t, record.Ingredients, 3)

	// Stage order and inputs: title saw the first page, region detection
	// saw the renamed second page, and extraction saw the crops.
	require.Len(t, invoker.calls, 4)
	assert.Equal(t, []string{page1}, invoker.calls[0].images)
	renamedPage2 := filepath.Join(dir, "chicken_soup_page2.jpg")
	assert.Equal(t, []string{renamedPage2}, invoker.calls[1].images)
	assert.Equal(t, []string{filepath.Join(dir, "chicken_soup_instructions.jpg")}, invoker.calls[2].images)
	assert.Equal(t, []string{filepath.Join(dir, "chicken_soup_ingredients.jpg")}, invoker.calls[3].images)

	assert.FileExists(t, filepath.Join(dir, "chicken_soup_ingredients.jpg"))
	assert.FileExists(t, filepath.Join(dir, "chicken_soup_instructions.jpg"))
}

func TestPipeline_SkipRegionDetection(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan011.pdf")
	page1 := writePage(t, dir, "scan011_page1.jpg")
	page2 := writePage(t, dir, "scan011_page2.jpg")

	invoker := &fakeInvoker{responses: map[string]string{
		titlePrompt:        titleResponse,
		instructionsPrompt: instructionsResponse,
		ingredientsPrompt:  ingredientsResponse,
	}}

	cfg := testConfig()
	cfg.SkipRegionDetection = true

	pipe := New(cfg, invoker, observability.Nop())
	completed, st, err := pipe.Run(context.Background(), NewState(doc, []domain.PageImage{
		{PageNumber: 1, ImagePath: page1},
		{PageNumber: 2, ImagePath: page2},
	}))
	require.NoError(t, err)
	require.True(t, completed)
	require.NotNil(t, st.Record)

	// Stages 3 and 4 fall back to the full second page.
	require.Len(t, invoker.calls, 3)
	renamedPage2 := filepath.Join(dir, "chicken_soup_page2.jpg")
	assert.Equal(t, []string{renamedPage2}, invoker.calls[1].images)
	assert.Equal(t, []string{renamedPage2}, invoker.calls[2].images)

	assert.NoFileExists(t, filepath.Join(dir, "chicken_soup_ingredients.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "chicken_soup_instructions.jpg"))
}

func TestPipeline_MaxStageHaltsWithoutRecord(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan012.pdf")
	page := writePage(t, dir, "scan012.jpg")

	invoker := &fakeInvoker{responses: map[string]string{titlePrompt: titleResponse}}

	cfg := testConfig()
	cfg.MaxStage = 1

	pipe := New(cfg, invoker, observability.Nop())
	completed, st, err := pipe.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	require.NoError(t, err)
	assert.False(t, completed)
	assert.Nil(t, st.Record)
	assert.Len(t, invoker.calls, 1)
}

func TestPipeline_PerStageConfigResolution(t *testing.T) {
	dir := t.TempDir()
	doc := writePDF(t, dir, "scan013.pdf")
	page := writePage(t, dir, "scan013.jpg")

	invoker := &fakeInvoker{responses: map[string]string{
		titlePrompt:        titleResponse,
		regionPrompt:       regionResponse,
		instructionsPrompt: instructionsResponse,
		ingredientsPrompt:  ingredientsResponse,
	}}

	cfg := testConfig()
	cfg.Stages = map[int]config.StageOverride{2: {Model: "detector-model"}}

	pipe := New(cfg, invoker, observability.Nop())
	completed, _, err := pipe.Run(context.Background(), NewState(doc, []domain.PageImage{{PageNumber: 1, ImagePath: page}}))
	require.NoError(t, err)
	require.True(t, completed)

	require.Len(t, invoker.calls, 4)
	assert.Equal(t, "test-model", invoker.calls[0].cfg.Model)
	assert.Equal(t, "detector-model", invoker.calls[1].cfg.Model)
	assert.Equal(t, "test-model", invoker.calls[2].cfg.Model)
}
