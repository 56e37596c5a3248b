// Package dynamodb stores relcache entries as items of a DynamoDB table with a
// string partition key "k" and a binary attribute "v".
//
// Keys and Clear use Scan, which reads the whole table (or the part matching
// a begins_with filter). That matches relcache's linear-scan contract but is
// billed per item read.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	pr "github.com/unkn0wn-root/relcache/provider"
)

const (
	attrKey   = "k"
	attrValue = "v"
)

// API is the subset of *dynamodb.Client the provider calls.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, opts ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var ErrNoTable = errors.New("dynamodb provider: table is required")

type record struct {
	Key   string `dynamodbav:"k"`
	Value []byte `dynamodbav:"v"`
}

type Provider struct {
	api   API
	table string
}

var (
	_ pr.Provider     = (*Provider)(nil)
	_ pr.PrefixLister = (*Provider)(nil)
)

type Config struct {
	Table string
	// Region and Endpoint are only used by Open. Endpoint targets DynamoDB
	// Local or another compatible service.
	Region   string
	Endpoint string
}

func New(api API, table string) (*Provider, error) {
	if api == nil {
		return nil, errors.New("dynamodb provider: nil client")
	}
	if table == "" {
		return nil, ErrNoTable
	}
	return &Provider{api: api, table: table}, nil
}

// Open builds a client from the default AWS credential chain.
func Open(ctx context.Context, cfg Config) (*Provider, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("dynamodb provider: load aws config: %w", err)
	}
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Table)
}

func keyOf(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{attrKey: &types.AttributeValueMemberS{Value: k}}
}

func (p *Provider) Get(ctx context.Context, key string) ([]byte, bool, error) {
	out, err := p.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(p.table),
		Key:            keyOf(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, err
	}
	if out.Item == nil {
		return nil, false, nil
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, false, fmt.Errorf("dynamodb provider: unmarshal %q: %w", key, err)
	}
	if rec.Value == nil {
		rec.Value = []byte{}
	}
	return rec.Value, true, nil
}

func (p *Provider) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	item, err := attributevalue.MarshalMap(record{Key: key, Value: value})
	if err != nil {
		return err
	}
	_, err = p.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(p.table),
		Item:      item,
	})
	return err
}

func (p *Provider) Del(ctx context.Context, key string) error {
	_, err := p.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(p.table),
		Key:       keyOf(key),
	})
	return err
}

func (p *Provider) Has(ctx context.Context, key string) (bool, error) {
	out, err := p.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(p.table),
		Key:                      keyOf(key),
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": attrKey},
	})
	if err != nil {
		return false, err
	}
	return out.Item != nil, nil
}

func (p *Provider) Keys(ctx context.Context) ([]string, error) {
	return p.KeysWithPrefix(ctx, "")
}

func (p *Provider) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	in := &dynamodb.ScanInput{
		TableName:                aws.String(p.table),
		ProjectionExpression:     aws.String("#k"),
		ExpressionAttributeNames: map[string]string{"#k": attrKey},
		ConsistentRead:           aws.Bool(true),
	}
	if prefix != "" {
		in.FilterExpression = aws.String("begins_with(#k, :p)")
		in.ExpressionAttributeValues = map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: prefix},
		}
	}

	var out []string
	pages := dynamodb.NewScanPaginator(p.api, in)
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if s, ok := item[attrKey].(*types.AttributeValueMemberS); ok {
				out = append(out, s.Value)
			}
		}
	}
	return out, nil
}

func (p *Provider) Clear(ctx context.Context) error {
	return p.ClearPrefix(ctx, "")
}

func (p *Provider) ClearPrefix(ctx context.Context, prefix string) error {
	keys, err := p.KeysWithPrefix(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := p.Del(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) Close(context.Context) error { return nil }
