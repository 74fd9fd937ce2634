// Copyright (C) 2025 parley.chat <dev@parley.chat>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// envelope is the wire format published to redis. Gateways relay it to
// websocket subscribers of the channel as-is.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisBroker publishes events through redis pub/sub, one redis channel per
// chat channel.
type RedisBroker struct {
	rdb *redis.Client
	ctx context.Context
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{
		rdb: rdb,
		ctx: context.Background(),
	}
}

func (b *RedisBroker) Publish(channel, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}

	msg, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	return b.rdb.Publish(b.ctx, channel, msg).Err()
}
