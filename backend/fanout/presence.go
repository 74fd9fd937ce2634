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
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/parleychat/parley/backend/models"
)

const onlineSetKey = "presence:online"

// Presence tracks which users hold at least one live connection, backed by
// a redis set so every server instance sees the same roster.
type Presence struct {
	rdb    *redis.Client
	engine *Engine
	ctx    context.Context
}

func NewPresence(rdb *redis.Client, engine *Engine) *Presence {
	return &Presence{
		rdb:    rdb,
		engine: engine,
		ctx:    context.Background(),
	}
}

func (p *Presence) Join(userID int64) error {
	added, err := p.rdb.SAdd(p.ctx, onlineSetKey, userID).Result()
	if err != nil {
		return err
	}
	if added > 0 {
		p.engine.publish(OnlineChannel, EventPresence, models.PresenceEvent{
			UserID: userID,
			Action: models.ActionOnline,
		})
	}
	return nil
}

func (p *Presence) Leave(userID int64) error {
	removed, err := p.rdb.SRem(p.ctx, onlineSetKey, userID).Result()
	if err != nil {
		return err
	}
	if removed > 0 {
		p.engine.publish(OnlineChannel, EventPresence, models.PresenceEvent{
			UserID: userID,
			Action: models.ActionOffline,
		})
	}
	return nil
}

func (p *Presence) Online() ([]int64, error) {
	members, err := p.rdb.SMembers(p.ctx, onlineSetKey).Result()
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
