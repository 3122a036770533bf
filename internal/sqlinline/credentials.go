package sqlinline

// Provider API keys live in the database so they can be rotated without a
// redeploy. Environment variables take precedence when set.

const QSelectProviderKey = `--sql 639b156f-f36f-48fe-a0de-a1a5e978ab04
select api_key
from provider_credentials
where provider = $1::text
limit 1;
`

const QUpsertProviderKey = `--sql f2210ead-99af-4cfe-97fc-a5f1ff5db966
insert into provider_credentials (id, provider, api_key, properties, created_at, updated_at)
values (gen_random_uuid(), $1::text, $2::text, coalesce($3::jsonb, '{}'::jsonb), now(), now())
on conflict (provider) do update set
    api_key = excluded.api_key,
    properties = excluded.properties,
    updated_at = now();
`
