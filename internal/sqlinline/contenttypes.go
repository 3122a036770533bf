package sqlinline

const QSelectContentTypeByID = `--sql c8dd749c-07d9-4463-9aa4-b8be6da938c9
select id, name, category, version, definition
from content_types
where id = $1::text;
`

const QUpsertContentType = `--sql 88b5dc39-08ae-41c0-9544-aa25eca70bfe
insert into content_types (id, name, category, version, definition, created_at, updated_at)
values ($1::text, $2::text, $3::text, $4::int, $5::jsonb, now(), now())
on conflict (id) do update set
  name = excluded.name,
  category = excluded.category,
  version = excluded.version,
  definition = excluded.definition,
  updated_at = now();
`
