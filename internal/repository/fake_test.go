package repository

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// fakeDynamo captures the last input per operation and returns canned outputs.
type fakeDynamo struct {
	getOut   *dynamodb.GetItemOutput
	getErr   error
	putErr   error
	queryOut *dynamodb.QueryOutput
	queryErr error
	// queryOuts, when set, is consumed one output per Query call.
	queryOuts []*dynamodb.QueryOutput
	updateErr error
	deleteErr error
	batchOut  *dynamodb.BatchWriteItemOutput
	batchErr  error

	lastGetInput    *dynamodb.GetItemInput
	lastPutInput    *dynamodb.PutItemInput
	lastQueryIn     *dynamodb.QueryInput
	lastUpdateIn    *dynamodb.UpdateItemInput
	lastDeleteIn    *dynamodb.DeleteItemInput
	batchInputs     []*dynamodb.BatchWriteItemInput
	queryCallCount  int
	updateCallCount int
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	f.queryCallCount++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if len(f.queryOuts) > 0 {
		out := f.queryOuts[0]
		f.queryOuts = f.queryOuts[1:]
		return out, nil
	}
	if f.queryOut != nil {
		return f.queryOut, nil
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.lastUpdateIn = in
	f.updateCallCount++
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.lastDeleteIn = in
	return &dynamodb.DeleteItemOutput{}, f.deleteErr
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.batchInputs = append(f.batchInputs, in)
	if f.batchErr != nil {
		return nil, f.batchErr
	}
	if f.batchOut != nil {
		return f.batchOut, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}
