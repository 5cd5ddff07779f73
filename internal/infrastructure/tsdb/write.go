package tsdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WritePropertySample records one numeric property reading under the
// property_samples measurement, tagged by thing and property name.
// Non-blocking: the point joins the current batch. Dropped silently
// when the client is closed or never connected.
func (c *Client) WritePropertySample(thingID, property string, value float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"property_samples",
		map[string]string{"thing_id": thingID, "property": property},
		map[string]any{"value": value},
		time.Now(),
	))
}
