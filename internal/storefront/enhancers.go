package storefront

import (
	"context"

	"github.com/agentstation/gamesync/pkg/catalog"
	"github.com/agentstation/gamesync/pkg/enhancer"
)

// DetailsEnhancer produces the full game document for an id.
type DetailsEnhancer struct {
	client *Client
}

// NewDetailsEnhancer creates a DetailsEnhancer.
func NewDetailsEnhancer(client *Client) *DetailsEnhancer {
	return &DetailsEnhancer{client: client}
}

// Name returns the enhancer name
func (e *DetailsEnhancer) Name() string { return "details" }

// CanEnhance accepts every id.
func (e *DetailsEnhancer) CanEnhance(enhancer.Task) bool { return true }

// Enhance fetches and flattens the details of task.ID.
func (e *DetailsEnhancer) Enhance(ctx context.Context, task enhancer.Task) (*catalog.Record, error) {
	data, err := e.client.AppDetails(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return NewGameDocument(task.ID, data, e.client.now()).Record()
}

// DescribeEnhancer produces the cleaned long description for an id.
type DescribeEnhancer struct {
	client *Client
}

// NewDescribeEnhancer creates a DescribeEnhancer.
func NewDescribeEnhancer(client *Client) *DescribeEnhancer {
	return &DescribeEnhancer{client: client}
}

// Name returns the enhancer name
func (e *DescribeEnhancer) Name() string { return "describe" }

// CanEnhance accepts every id.
func (e *DescribeEnhancer) CanEnhance(enhancer.Task) bool { return true }

// Enhance fetches the description of task.ID. Apps without a description
// produce no record.
func (e *DescribeEnhancer) Enhance(ctx context.Context, task enhancer.Task) (*catalog.Record, error) {
	data, err := e.client.AppDetails(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	doc, ok := NewDescriptionDocument(task.ID, data)
	if !ok {
		return nil, nil
	}
	return doc.Record()
}

// TagsEnhancer produces the user tags of an id.
type TagsEnhancer struct {
	client *Client
}

// NewTagsEnhancer creates a TagsEnhancer.
func NewTagsEnhancer(client *Client) *TagsEnhancer {
	return &TagsEnhancer{client: client}
}

// Name returns the enhancer name
func (e *TagsEnhancer) Name() string { return "tags" }

// CanEnhance accepts every id.
func (e *TagsEnhancer) CanEnhance(enhancer.Task) bool { return true }

// Enhance scrapes the tags of task.ID.
func (e *TagsEnhancer) Enhance(ctx context.Context, task enhancer.Task) (*catalog.Record, error) {
	tags, err := e.client.AppTags(ctx, task.ID)
	if err != nil {
		return nil, err
	}
	return (&TagsDocument{SteamID: task.ID, Tags: tags}).Record()
}

var (
	_ enhancer.Enhancer = (*DetailsEnhancer)(nil)
	_ enhancer.Enhancer = (*DescribeEnhancer)(nil)
	_ enhancer.Enhancer = (*TagsEnhancer)(nil)
)
