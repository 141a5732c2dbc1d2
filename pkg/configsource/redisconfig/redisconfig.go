// Package redisconfig reads LAG member configuration out of a CONFIG_DB-shaped
// Redis keyspace (PORTCHANNEL / PORTCHANNEL_MEMBER tables, the same layout
// SONiC's config_db.json uses) and turns it into dispatch events.
package redisconfig

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/newtron-network/lacpd/pkg/audit"
	"github.com/newtron-network/lacpd/pkg/lacp/aggregator"
	"github.com/newtron-network/lacpd/pkg/lacp/dispatch"
	"github.com/newtron-network/lacpd/pkg/lacp/handle"
	"github.com/newtron-network/lacpd/pkg/lacp/wire"
)

// Source reads LACP configuration from CONFIG_DB (Redis DB 4 in SONiC's
// convention) and pushes the resulting events onto a dispatch.Queue.
type Source struct {
	client *redis.Client
}

// New returns a Source connected to addr, CONFIG_DB (DB 4).
func New(addr string) *Source {
	return &Source{client: redis.NewClient(&redis.Options{Addr: addr, DB: 4})}
}

// Close releases the underlying Redis connection.
func (s *Source) Close() error { return s.client.Close() }

// portChannelKeyPrefix and portChannelMemberKeyPrefix match SONiC's
// PORTCHANNEL|<name> and PORTCHANNEL_MEMBER|<name>|<member> hash key layout.
const (
	portChannelKeyPrefix       = "PORTCHANNEL|"
	portChannelMemberKeyPrefix = "PORTCHANNEL_MEMBER|"
)

// Sync does a one-shot read of every PORTCHANNEL and PORTCHANNEL_MEMBER entry
// and pushes the equivalent ConfigSportCreate/ConfigLportSet events onto q.
// Intended to run once at startup, before Watch takes over for live updates.
func (s *Source) Sync(ctx context.Context, q *dispatch.Queue) error {
	lagKeys, err := s.client.Keys(ctx, portChannelKeyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("redisconfig: KEYS %s*: %w", portChannelKeyPrefix, err)
	}
	sort.Strings(lagKeys)

	lagFields := make(map[uint16]map[string]string, len(lagKeys))

	for _, key := range lagKeys {
		name := strings.TrimPrefix(key, portChannelKeyPrefix)
		lagID, err := lagIDFromName(name)
		if err != nil {
			continue
		}
		fields, err := s.client.HGetAll(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redisconfig: HGETALL %s: %w", key, err)
		}
		lagFields[lagID] = fields
		actorKey := parseActorKeyField(fields["actor_key"])
		sportHandle := handle.NewLAG(lagID)
		err = q.Push(dispatch.ConfigSportCreate{
			Handle:   sportHandle,
			PortType: 0,
			ActorKey: actorKey,
		})
		event := audit.NewEvent(audit.OpConfigSportCreate).
			WithSport(sportHandle.String()).
			WithFields([]audit.FieldChange{{Field: "actor_key", New: fields["actor_key"]}})
		if err != nil {
			audit.Log(event.WithError(err))
			return fmt.Errorf("redisconfig: push ConfigSportCreate for %s: %w", name, err)
		}
		audit.Log(event.WithSuccess())

		if params, ok := sportParamsFromFields(sportHandle, actorKey, fields); ok {
			perr := q.Push(params)
			pevent := audit.NewEvent(audit.OpConfigSportParams).WithSport(sportHandle.String())
			if perr != nil {
				audit.Log(pevent.WithError(perr))
				return fmt.Errorf("redisconfig: push ConfigSportParams for %s: %w", name, perr)
			}
			audit.Log(pevent.WithSuccess())
		}
	}

	memberKeys, err := s.client.Keys(ctx, portChannelMemberKeyPrefix+"*").Result()
	if err != nil {
		return fmt.Errorf("redisconfig: KEYS %s*: %w", portChannelMemberKeyPrefix, err)
	}
	sort.Strings(memberKeys)

	for _, key := range memberKeys {
		rest := strings.TrimPrefix(key, portChannelMemberKeyPrefix)
		parts := strings.SplitN(rest, "|", 2)
		if len(parts) != 2 {
			continue
		}
		lagID, err := lagIDFromName(parts[0])
		if err != nil {
			continue
		}
		portNum, err := portNumFromName(parts[1])
		if err != nil {
			continue
		}
		lag := lagFields[lagID]
		lportHandle := handle.FromLport(0, 0, portNum, 0, false)
		err = q.Push(dispatch.ConfigLportSet{
			Port:        lportHandle,
			ActorKey:    parseActorKeyField(lag["actor_key"]),
			Enabled:     true,
			Activity:    true,
			Timeout:     parseBoolField(lag["fast_rate"]),
			Aggregation: true,
		})
		event := audit.NewEvent(audit.OpConfigLportSet).WithPort(lportHandle.String())
		if err != nil {
			audit.Log(event.WithError(err))
			return fmt.Errorf("redisconfig: push ConfigLportSet for %s: %w", key, err)
		}
		audit.Log(event.WithSuccess())
	}
	return nil
}

// Watch subscribes to CONFIG_DB's keyspace notifications and re-runs Sync on
// every change. Blocks until ctx is canceled.
func (s *Source) Watch(ctx context.Context, q *dispatch.Queue) error {
	pubsub := s.client.PSubscribe(ctx, "__keyspace@4__:PORTCHANNEL*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				return nil
			}
			if err := s.Sync(ctx, q); err != nil {
				return err
			}
		}
	}
}

func lagIDFromName(name string) (uint16, error) {
	const prefix = "PortChannel"
	if !strings.HasPrefix(name, prefix) {
		return 0, fmt.Errorf("redisconfig: %q is not a PortChannel name", name)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(n), nil
}

func portNumFromName(name string) (uint8, error) {
	const prefix = "Ethernet"
	if !strings.HasPrefix(name, prefix) {
		return 0, fmt.Errorf("redisconfig: %q is not an Ethernet port name", name)
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(name, prefix), 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(n), nil
}

func parseActorKeyField(v string) uint16 {
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

func parseBoolField(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func parseUint16Field(v string) (uint16, bool) {
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

func parseUint8Field(v string) (uint8, bool) {
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return 0, false
	}
	return uint8(n), true
}

// sportParamsFromFields builds a ConfigSportParams event from a PORTCHANNEL
// hash's optional admin partner-default fields. ok is false when none of
// those fields are present, meaning no update is needed.
func sportParamsFromFields(sportHandle handle.Port, actorKey uint16, fields map[string]string) (dispatch.ConfigSportParams, bool) {
	params := dispatch.ConfigSportParams{Handle: sportHandle, ActorKey: actorKey}

	if pri, ok := parseUint16Field(fields["partner_system_priority"]); ok {
		if mac, err := wire.ParseMAC(fields["partner_system_mac"]); err == nil {
			params.PartnerSysPri = pri
			params.PartnerSysMAC = mac
			params.Flags |= aggregator.FlagPartnerSysID
		}
	}
	if key, ok := parseUint16Field(fields["partner_key"]); ok {
		params.PartnerKey = key
		params.Flags |= aggregator.FlagPartnerKey
	}
	if aggrType, ok := parseUint8Field(fields["aggr_type"]); ok {
		params.AggrType = aggrType
	}
	if params.Flags == 0 && fields["aggr_type"] == "" {
		return dispatch.ConfigSportParams{}, false
	}
	return params, true
}
