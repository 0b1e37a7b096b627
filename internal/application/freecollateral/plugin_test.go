package freecollateral_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/alejandrodnm/freecollateral/internal/application/freecollateral"
	"github.com/alejandrodnm/freecollateral/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAddress = "0x1111111111111111111111111111111111111111"

// fakeFetcher devuelve siempre el mismo snapshot (o error) y cuenta las llamadas.
type fakeFetcher struct {
	snap      domain.FreeCollateralSnapshot
	err       error
	calls     int
	addresses []string
}

func (f *fakeFetcher) FetchSnapshot(_ context.Context, address string) (domain.FreeCollateralSnapshot, error) {
	f.calls++
	f.addresses = append(f.addresses, address)
	return f.snap, f.err
}

func withFreeCollateral(fc float64) *fakeFetcher {
	// colateral y deuda coherentes con el free collateral pedido
	return &fakeFetcher{snap: domain.NewSnapshot(fc+1000, 1000)}
}

func TestPlugin_Info(t *testing.T) {
	assert.Equal(t, "Free Collateral", freecollateral.Info.DisplayName)
	assert.NotEmpty(t, freecollateral.Info.Description)
}

func TestPlugin_OnInit_NoOp(t *testing.T) {
	f := &fakeFetcher{}
	p := freecollateral.New(f)

	require.NoError(t, p.OnInit(context.Background(), domain.InitArgs{}))
	assert.Zero(t, f.calls)
}

func TestPlugin_OnSubscribeForm_SingleFieldWithFixedDefault(t *testing.T) {
	for _, fc := range []float64{-500, 0, 400, 1234, 5_000_000} {
		f := withFreeCollateral(fc)
		p := freecollateral.New(f)

		fields, err := p.OnSubscribeForm(context.Background(), domain.FormArgs{Address: testAddress})
		require.NoError(t, err)
		require.Len(t, fields, 1)

		field := fields[0]
		assert.Equal(t, "free-collateral", field.ID)
		assert.Equal(t, domain.FieldNumber, field.Type)
		assert.Equal(t, 1000.0, field.Default, "el default no depende del snapshot")
		assert.NotEmpty(t, field.Label)
		assert.Contains(t, field.Description, domain.FormatCompact(fc)+" USD")
		assert.Equal(t, []string{testAddress}, f.addresses)
	}
}

func TestPlugin_OnSubscribeForm_FetchErrorFails(t *testing.T) {
	boom := errors.New("rpc down")
	p := freecollateral.New(&fakeFetcher{err: boom})

	fields, err := p.OnSubscribeForm(context.Background(), domain.FormArgs{Address: testAddress})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, fields)
}

func TestPlugin_OnBlocks_NoSubscription(t *testing.T) {
	f := withFreeCollateral(-1_000_000)
	p := freecollateral.New(f)

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{Address: testAddress})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, f.calls, "sin suscripción no se consulta nada")
}

func TestPlugin_OnBlocks_BelowThreshold(t *testing.T) {
	f := withFreeCollateral(400)
	p := freecollateral.New(f)

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"free-collateral": 500.0},
		Address:      testAddress,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Notification, "400 USD")
	assert.Equal(t, 1, f.calls)
}

func TestPlugin_OnBlocks_AboveThreshold(t *testing.T) {
	p := freecollateral.New(withFreeCollateral(600))

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"free-collateral": 500.0},
		Address:      testAddress,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPlugin_OnBlocks_EqualToThresholdDoesNotNotify(t *testing.T) {
	p := freecollateral.New(withFreeCollateral(500))

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"free-collateral": 500},
		Address:      testAddress,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestPlugin_OnBlocks_StringThreshold(t *testing.T) {
	p := freecollateral.New(withFreeCollateral(400))

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"free-collateral": "500"},
		Address:      testAddress,
	})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestPlugin_OnBlocks_MissingThreshold(t *testing.T) {
	f := withFreeCollateral(-500)
	p := freecollateral.New(f)

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"other": 1},
		Address:      testAddress,
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, f.calls)
}

func TestPlugin_OnBlocks_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("account not found")
	p := freecollateral.New(&fakeFetcher{err: boom})

	out, err := p.OnBlocks(context.Background(), domain.BlockArgs{
		Subscription: domain.Subscription{"free-collateral": 500.0},
		Address:      testAddress,
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, out)
}

func TestBuildNotification_NegativeFreeCollateral(t *testing.T) {
	p := freecollateral.New(&fakeFetcher{})
	snap := domain.FreeCollateralSnapshot{Debt: 2000, Collateral: 1500, FreeCollateral: -500}

	msg := p.BuildNotification(snap).Notification

	assert.Contains(t, msg, "-500 USD")
	assert.Contains(t, msg, "1.5K USD")
	assert.Contains(t, msg, "2K USD")
	assert.Equal(t, 3, strings.Count(msg, "USD"))
}

func TestBuildNotification_Idempotent(t *testing.T) {
	snap := domain.NewSnapshot(123_456, 7_890)
	a := freecollateral.BuildNotification(snap)
	b := freecollateral.BuildNotification(snap)
	assert.Equal(t, a, b)
}
