package sqlinline

const QInsertRequest = `--sql 3c1f96aa-0d7b-4f2e-9f93-6f9f2f0a41c2
insert into content_creation_requests (id, content_type_id, inputs, generated_output, status)
values ($1::uuid, $2::text, $3::jsonb, $4::jsonb, 'pending')
returning created_at;
`

const QSelectRequestByID = `--sql eb99af14-8263-4dcb-bbc2-b0b1b3dbd789
select
  id,
  content_type_id,
  inputs,
  generated_output,
  status,
  created_at,
  updated_at
from content_creation_requests
where id = $1::uuid;
`

const QSelectRequestStatus = `--sql 8e5c18c9-bcb6-4613-b145-b3b617bcc550
select status
from content_creation_requests
where id = $1::uuid;
`

const QUpdateRequestStatus = `--sql 40c83249-6269-4796-921f-2f9cd192d9f5
update content_creation_requests
set status = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QInitRequestOutput = `--sql 6e2e8ce6-a7f6-4f41-b25e-1d51f8156e7c
update content_creation_requests
set generated_output = $2::jsonb,
    updated_at = now()
where id = $1::uuid;
`

const QAppendRequestScene = `--sql 70405851-d165-44b0-8082-a7cf7c8e8148
update content_creation_requests
set generated_output = jsonb_set(
      coalesce(generated_output, '{"format":"storyboard_v1","scenes":[]}'::jsonb),
      '{scenes}',
      coalesce(generated_output->'scenes', '[]'::jsonb) || $2::jsonb
    ),
    updated_at = now()
where id = $1::uuid;
`

const QSetRequestImageSettings = `--sql 5d2f86e2-b8a6-4753-a34d-a15c0483bd99
update content_creation_requests
set generated_output = jsonb_set(
      coalesce(generated_output, '{"format":"storyboard_v1","scenes":[]}'::jsonb),
      '{imageGenerationSettings}',
      $2::jsonb
    ),
    updated_at = now()
where id = $1::uuid;
`

const QSetRequestScenePrompt = `--sql 7fc409a3-ee23-43f1-ba18-d825a6a28fd6
update content_creation_requests
set generated_output = jsonb_set(
      generated_output,
      array['scenes', $2::text, 'imagePrompt'],
      to_jsonb($3::text)
    ),
    updated_at = now()
where id = $1::uuid
  and generated_output->'scenes'->($2::int) is not null;
`
