package sqlinline

const QInsertGeneratedImage = `--sql 46c263a3-6bc3-4b5b-8673-c855ddf691a5
insert into generated_images (id, project_id, scene_index, image_index, image_url, created_at)
values (gen_random_uuid(), $1::uuid, $2::int, $3::int, $4::text, now())
on conflict (project_id, scene_index, image_index) do nothing;
`

const QSelectImagesByProject = `--sql de8e2534-a62f-4dd8-ac8d-b6e154689b05
select project_id, scene_index, image_index, image_url, created_at
from generated_images
where project_id = $1::uuid
order by scene_index, image_index;
`

const QDeleteImagesByProject = `--sql f0513db2-8fb6-4393-9745-4951b220da02
delete from generated_images
where project_id = $1::uuid;
`

const QDeleteImagesByScene = `--sql c98048a2-259b-4782-8a5d-529a271e15fb
delete from generated_images
where project_id = $1::uuid
  and scene_index = $2::int;
`
