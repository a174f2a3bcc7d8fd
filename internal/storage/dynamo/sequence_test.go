package dynamo

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/cleanerspos/internal/domain"
)

// simpleMock хранит таблицу в памяти и понимает только выражение инкремента счётчика.
type simpleMock struct {
	mu    sync.Mutex
	table map[string]map[string]types.AttributeValue
	err   error
}

func newSimpleMock() *simpleMock {
	return &simpleMock{table: make(map[string]map[string]types.AttributeValue)}
}

func keyOf(key map[string]types.AttributeValue) string {
	if v, ok := key["name"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func numberOf(av types.AttributeValue) (int64, bool) {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	return v, err == nil
}

func (m *simpleMock) UpdateItem(_ context.Context, in *dyn.UpdateItemInput, _ ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	if in.UpdateExpression == nil || *in.UpdateExpression != incrementExpression {
		return nil, errors.New("unexpected update expression")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(in.Key)
	item, ok := m.table[k]
	base, hasValue := int64(0), false
	if ok {
		base, hasValue = numberOf(item["next_value"])
	}
	if !hasValue {
		base, _ = numberOf(in.ExpressionAttributeValues[":start"])
	}
	one, _ := numberOf(in.ExpressionAttributeValues[":one"])
	next := &types.AttributeValueMemberN{Value: strconv.FormatInt(base+one, 10)}

	m.table[k] = map[string]types.AttributeValue{
		"name":       &types.AttributeValueMemberS{Value: k},
		"next_value": next,
	}
	return &dyn.UpdateItemOutput{Attributes: map[string]types.AttributeValue{"next_value": next}}, nil
}

func (m *simpleMock) PutItem(_ context.Context, in *dyn.PutItemInput, _ ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.table[keyOf(in.Item)] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *simpleMock) GetItem(_ context.Context, in *dyn.GetItemInput, _ ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return &dyn.GetItemOutput{Item: m.table[keyOf(in.Key)]}, nil
}

func TestSequence_StartsAtStartValue(t *testing.T) {
	seq := NewSequence(newSimpleMock(), "pos_counters", "nextId")
	ctx := context.Background()

	got, err := seq.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)

	first, err := seq.GetThenIncrement(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), first)

	after, err := seq.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), after)
}

func TestSequence_SetThenAllocate(t *testing.T) {
	seq := NewSequence(newSimpleMock(), "pos_counters", "nextId", WithStart(100))
	ctx := context.Background()

	require.NoError(t, seq.Set(ctx, 3000))

	first, err := seq.GetThenIncrement(ctx)
	require.NoError(t, err)
	second, err := seq.GetThenIncrement(ctx)
	require.NoError(t, err)

	require.Equal(t, uint64(3000), first)
	require.Equal(t, uint64(3001), second)
}

func TestSequence_CustomStart(t *testing.T) {
	seq := NewSequence(newSimpleMock(), "pos_counters", "nextId", WithStart(500))

	got, err := seq.GetThenIncrement(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(500), got)
}

func TestSequence_CountersAreIndependent(t *testing.T) {
	client := newSimpleMock()
	a := NewSequence(client, "pos_counters", "store-a")
	b := NewSequence(client, "pos_counters", "store-b")
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, 10))
	got, err := b.GetThenIncrement(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1), got)
}

func TestSequence_ConcurrentAllocationsAreDistinct(t *testing.T) {
	seq := NewSequence(newSimpleMock(), "pos_counters", "nextId")
	ctx := context.Background()

	const workers = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[uint64]struct{}, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := seq.GetThenIncrement(ctx)
			if err != nil {
				t.Errorf("allocate: %v", err)
				return
			}
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers)
}

func TestSequence_ErrorsAreStoreErrors(t *testing.T) {
	client := newSimpleMock()
	client.err = &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "table not found"}
	seq := NewSequence(client, "missing", "nextId")

	_, err := seq.GetThenIncrement(context.Background())
	require.Error(t, err)
	require.True(t, domain.IsStoreFailure(err))
	require.ErrorIs(t, err, ErrTableMissing)

	client.err = errors.New("throttled")
	_, err = seq.Get(context.Background())
	require.True(t, domain.IsStoreFailure(err))
	require.NotErrorIs(t, err, ErrTableMissing)
}
