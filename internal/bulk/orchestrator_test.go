package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doacoes/internal"
	"doacoes/internal/apperr"
	"doacoes/internal/auth"
	"doacoes/internal/catalog"
	"doacoes/internal/util"
)

const (
	categoryID = "0b6b2f36-3d43-4a7c-9a5e-0d1f8f5a7c11"
	photoURL   = "https://images.pexels.com/a/9.jpg"
)

type fakePhotos struct {
	calls   []string
	fail    map[string]bool
	panicOn string
}

func (f *fakePhotos) DownloadAndStore(_ context.Context, photoURL, _ string) (string, error) {
	f.calls = append(f.calls, photoURL)
	if photoURL == f.panicOn {
		panic("boom")
	}
	if f.fail[photoURL] {
		return "", apperr.ExternalAPI("Erro ao baixar foto da Pexels")
	}
	return "product-photos/" + photoURL[len(photoURL)-5:], nil
}

type fakeProducts struct {
	inputs []catalog.ProductInput
	err    error
}

func (f *fakeProducts) CreateProduct(_ context.Context, in catalog.ProductInput) (string, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return "", f.err
	}
	return "prod-" + in.Name, nil
}

type fakeRuns struct {
	runs []internal.ImportRun
}

func (f *fakeRuns) InsertImportRun(run internal.ImportRun) error {
	f.runs = append(f.runs, run)
	return nil
}

func admin() context.Context {
	return auth.WithSession(context.Background(), auth.Session{Username: "diretoria", Admin: true})
}

func item(name, photo string) internal.BulkItem {
	return internal.BulkItem{
		Name:         name,
		Description:  name + " para doação.",
		DonationType: internal.DonationPhysical,
		CategoryID:   categoryID,
		PhotoURL:     photo,
		IsPublished:  true,
	}
}

func TestBulkCreatePhotoFailureDoesNotStopBatch(t *testing.T) {
	photos := &fakePhotos{fail: map[string]bool{"https://images.pexels.com/a/1.jpg": true}}
	products := &fakeProducts{}
	runs := &fakeRuns{}
	o := NewOrchestrator(photos, products, runs, auth.ContextChecker{}, nil)

	var progress []int
	results, err := o.BulkCreate(admin(), []internal.BulkItem{
		item("Mesa", "https://images.pexels.com/a/1.jpg"),
		item("Cadeira", "https://images.pexels.com/a/2.jpg"),
	}, func(i int, _ internal.ImportResult) { progress = append(progress, i) })
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, internal.ImportResult{RowIndex: 0, Name: "Mesa", Error: MsgPhotoFailed}, results[0])
	assert.Equal(t, internal.ImportResult{RowIndex: 1, Name: "Cadeira", Success: true, ProductID: "prod-Cadeira"}, results[1])

	require.Len(t, products.inputs, 1, "no product is created without its photo")
	assert.Equal(t, []string{categoryID}, products.inputs[0].CategoryIDs)
	require.NotNil(t, products.inputs[0].ImagePath)
	assert.Equal(t, "product-photos/2.jpg", *products.inputs[0].ImagePath)

	assert.Equal(t, []int{0, 1}, progress)
	require.Len(t, runs.runs, 1)
	assert.Equal(t, 1, runs.runs[0].Succeeded)
	assert.Equal(t, 1, runs.runs[0].Failed)
}

func TestBulkCreateRejectsSkippedPhoto(t *testing.T) {
	photos := &fakePhotos{}
	products := &fakeProducts{}
	o := NewOrchestrator(photos, products, nil, auth.ContextChecker{}, nil)

	results, err := o.BulkCreate(admin(), []internal.BulkItem{
		item("Cadeira", "https://images.pexels.com/a/2.jpg"),
		item("Mesa", ""),
	}, nil)
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
	assert.Nil(t, results)
	assert.Empty(t, photos.calls)
	assert.Empty(t, products.inputs)
}

func TestBulkCreateCreatorFailure(t *testing.T) {
	products := &fakeProducts{err: apperr.Validation("bad")}
	o := NewOrchestrator(&fakePhotos{}, products, nil, auth.ContextChecker{}, nil)

	results, err := o.BulkCreate(admin(), []internal.BulkItem{item("Mesa", "https://images.pexels.com/a/1.jpg")}, nil)
	require.NoError(t, err)
	assert.False(t, results[0].Success)
	assert.Equal(t, "VALIDATION_ERROR", results[0].Error)

	products.err = errors.New("disk")
	results, err = o.BulkCreate(admin(), []internal.BulkItem{item("Mesa", "https://images.pexels.com/a/1.jpg")}, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgCreateFailed, results[0].Error)
}

func TestBulkCreateRecoversPanics(t *testing.T) {
	o := NewOrchestrator(&fakePhotos{panicOn: "https://images.pexels.com/a/1.jpg"}, &fakeProducts{}, nil, auth.ContextChecker{}, nil)

	results, err := o.BulkCreate(admin(), []internal.BulkItem{
		item("Mesa", "https://images.pexels.com/a/1.jpg"),
		item("Cadeira", "https://images.pexels.com/a/2.jpg"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, MsgItemFailed, results[0].Error)
	assert.True(t, results[1].Success)
}

func TestBulkCreateRejectsWholeBatch(t *testing.T) {
	photos := &fakePhotos{}
	products := &fakeProducts{}
	o := NewOrchestrator(photos, products, nil, auth.ContextChecker{}, nil)

	_, err := o.BulkCreate(context.Background(), []internal.BulkItem{item("Mesa", photoURL)}, nil)
	assert.Equal(t, apperr.CodeUnauthorized, apperr.CodeOf(err))

	tooMany := make([]internal.BulkItem, MaxItems+1)
	for i := range tooMany {
		tooMany[i] = item("Mesa", photoURL)
	}
	monetaryWithoutTarget := item("Projetor", photoURL)
	monetaryWithoutTarget.DonationType = internal.DonationMonetary
	zeroTarget := monetaryWithoutTarget
	zeroTarget.TargetAmount = util.Int64Ptr(0)
	badCategory := item("Mesa", photoURL)
	badCategory.CategoryID = "x"

	notURL := item("Mesa", "foto.jpg")

	for name, items := range map[string][]internal.BulkItem{
		"empty":          {},
		"nil":            nil,
		"too many":       tooMany,
		"missing target": {item("Mesa", photoURL), monetaryWithoutTarget},
		"zero target":    {zeroTarget},
		"bad category":   {badCategory},
		"no photo":       {item("Mesa", "")},
		"photo not url":  {notURL},
	} {
		results, err := o.BulkCreate(admin(), items, nil)
		assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err), name)
		assert.Nil(t, results, name)
	}

	assert.Empty(t, photos.calls)
	assert.Empty(t, products.inputs)
}
