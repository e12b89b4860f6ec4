package e2e

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxClient wraps the InfluxDB v2 client for the end-to-end suite. It
// prepares the bucket the planner writes to and counts what landed there.
type InfluxClient struct {
	url    string
	org    string
	bucket string
	token  string
	client influxdb2.Client
	write  api.WriteAPIBlocking
	query  api.QueryAPI
}

// NewInfluxClient creates a new client for the given parameters. It assumes
// the server is already running and reachable.
func NewInfluxClient(url, org, bucket, token string) *InfluxClient {
	c := influxdb2.NewClient(url, token)
	return &InfluxClient{
		url:    url,
		org:    org,
		bucket: bucket,
		token:  token,
		client: c,
		write:  c.WriteAPIBlocking(org, bucket),
		query:  c.QueryAPI(org),
	}
}

// CountPoints returns how many records of the measurement were written in
// the last window.
func (c *InfluxClient) CountPoints(ctx context.Context, measurement string, window time.Duration) (int, error) {
	flux := fmt.Sprintf(`from(bucket:%q) |> range(start: -%s) |> filter(fn: (r) => r._measurement == %q)`,
		c.bucket, window, measurement)
	res, err := c.query.Query(ctx, flux)
	if err != nil {
		return 0, err
	}
	defer res.Close()
	n := 0
	for res.Next() {
		n++
	}
	return n, res.Err()
}

// SetupBucket ensures the organisation and bucket exist on the running
// InfluxDB instance. It creates them if missing using the management API.
func (c *InfluxClient) SetupBucket(ctx context.Context) error {
	orgAPI := c.client.OrganizationsAPI()
	org, err := orgAPI.FindOrganizationByName(ctx, c.org)
	if err != nil || org == nil {
		org, err = orgAPI.CreateOrganizationWithName(ctx, c.org)
		if err != nil {
			return fmt.Errorf("create org: %w", err)
		}
	}

	bucketAPI := c.client.BucketsAPI()
	buckets, err := bucketAPI.FindBucketsByOrgName(ctx, c.org)
	if err != nil {
		return err
	}
	if buckets != nil {
		for _, b := range *buckets {
			if b.Name == c.bucket {
				return nil
			}
		}
	}
	_, err = bucketAPI.CreateBucketWithName(ctx, org, c.bucket)
	if err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// Close releases the underlying client resources.
func (c *InfluxClient) Close() { c.client.Close() }
