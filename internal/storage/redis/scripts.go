package redis

const (
	// replaceDailyScript swaps a daily report hash for a new one and indexes
	// its date, so readers never observe a half-written report.
	replaceDailyScript = `
local report_key = KEYS[1]    -- screentime:daily:{userID}:{date}
local index_key = KEYS[2]     -- screentime:daily:index:{userID}

local date = ARGV[1]
local score = tonumber(ARGV[2])

redis.call('DEL', report_key)
for i = 3, #ARGV, 2 do
  redis.call('HSET', report_key, ARGV[i], ARGV[i + 1])
end

redis.call('ZADD', index_key, score, date)

return 'OK'
`

	// deleteDailyBeforeScript removes every indexed report scored below the
	// cutoff and returns how many dates were dropped.
	deleteDailyBeforeScript = `
local index_key = KEYS[1]     -- screentime:daily:index:{userID}

local report_prefix = ARGV[1] -- screentime:daily:{userID}:
local max_score = '(' .. ARGV[2]

local dates = redis.call('ZRANGEBYSCORE', index_key, '-inf', max_score)
for _, date in ipairs(dates) do
  redis.call('DEL', report_prefix .. date)
end
redis.call('ZREMRANGEBYSCORE', index_key, '-inf', max_score)

return #dates
`
)
