package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Cost Explorer, Organizations e Budgets só respondem em us-east-1.
const globalRegion = "us-east-1"

// Clients carrega a configuração AWS uma vez por perfil e mantém cache dos clientes de serviço.
type Clients struct {
	profile     string
	region      string
	cfgCache    map[string]aws.Config
	clientCache map[string]interface{}
	mu          sync.Mutex
}

// NewClients creates a client cache for the profile; an empty profile uses the default chain.
func NewClients(profile, region string) *Clients {
	return &Clients{
		profile:     profile,
		region:      region,
		cfgCache:    make(map[string]aws.Config),
		clientCache: make(map[string]interface{}),
	}
}

func (c *Clients) getAWSConfig(ctx context.Context) (aws.Config, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg, ok := c.cfgCache[c.profile]; ok {
		return cfg, nil
	}

	var opts []func(*config.LoadOptions) error
	if c.profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(c.profile))
	}
	if c.region != "" {
		opts = append(opts, config.WithRegion(c.region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config for profile %q: %w", c.profile, err)
	}

	c.cfgCache[c.profile] = cfg
	return cfg, nil
}

func (c *Clients) getServiceClient(ctx context.Context, service string) (interface{}, error) {
	c.mu.Lock()
	if client, ok := c.clientCache[service]; ok {
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	cfg, err := c.getAWSConfig(ctx)
	if err != nil {
		return nil, err
	}

	regionalCfg := cfg.Copy()

	var client interface{}
	switch service {
	case "sts":
		client = sts.NewFromConfig(regionalCfg)
	case "costexplorer":
		regionalCfg.Region = globalRegion
		client = costexplorer.NewFromConfig(regionalCfg)
	case "budgets":
		regionalCfg.Region = globalRegion
		client = budgets.NewFromConfig(regionalCfg)
	case "organizations":
		regionalCfg.Region = globalRegion
		client = organizations.NewFromConfig(regionalCfg)
	case "sesv2":
		client = sesv2.NewFromConfig(regionalCfg)
	default:
		return nil, fmt.Errorf("unsupported service: %s", service)
	}

	c.mu.Lock()
	c.clientCache[service] = client
	c.mu.Unlock()

	return client, nil
}

// CostExplorer returns the cached Cost Explorer client.
func (c *Clients) CostExplorer(ctx context.Context) (*costexplorer.Client, error) {
	client, err := c.getServiceClient(ctx, "costexplorer")
	if err != nil {
		return nil, err
	}
	return client.(*costexplorer.Client), nil
}

// Organizations returns the cached Organizations client.
func (c *Clients) Organizations(ctx context.Context) (*organizations.Client, error) {
	client, err := c.getServiceClient(ctx, "organizations")
	if err != nil {
		return nil, err
	}
	return client.(*organizations.Client), nil
}

// SES returns the cached SES v2 client.
func (c *Clients) SES(ctx context.Context) (*sesv2.Client, error) {
	client, err := c.getServiceClient(ctx, "sesv2")
	if err != nil {
		return nil, err
	}
	return client.(*sesv2.Client), nil
}

// Budgets returns the cached Budgets client.
func (c *Clients) Budgets(ctx context.Context) (*budgets.Client, error) {
	client, err := c.getServiceClient(ctx, "budgets")
	if err != nil {
		return nil, err
	}
	return client.(*budgets.Client), nil
}

// STS returns the cached STS client.
func (c *Clients) STS(ctx context.Context) (*sts.Client, error) {
	client, err := c.getServiceClient(ctx, "sts")
	if err != nil {
		return nil, err
	}
	return client.(*sts.Client), nil
}
